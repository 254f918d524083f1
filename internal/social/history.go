package social

import "slices"

// ProfileChange describes a committed profile edit. Old holds only the fields
// that changed, with their previous values.
type ProfileChange struct {
	Account AccountID
	Edited  WhoAndWhen
	Before  Profile
	After   Profile
	Old     ProfileUpdate
}

type SpaceChange struct {
	SpaceID SpaceID
	Edited  WhoAndWhen
	Before  Space
	After   Space
	Old     SpaceUpdate
}

type PostChange struct {
	PostID PostID
	Edited WhoAndWhen
	Before Post
	After  Post
	Old    PostUpdate
}

// UpdateObserver is invoked inside the updating transaction, after the entity
// has been written.
type UpdateObserver interface {
	ProfileUpdated(ProfileChange)
	SpaceUpdated(SpaceChange)
	PostUpdated(PostChange)
}

// historyRecorder appends an edit-history entry for every change.
type historyRecorder struct {
	ledger *Ledger
}

func (h *historyRecorder) ProfileUpdated(change ProfileChange) {
	appendIndex(h.ledger.profileHistory, change.Account, ProfileHistoryEntry{
		Edited: change.Edited,
		Old:    change.Old,
	})
}

func (h *historyRecorder) SpaceUpdated(change SpaceChange) {
	space, ok := h.ledger.spaces.get(change.SpaceID)
	if !ok {
		return
	}
	space.EditHistory = append(slices.Clone(space.EditHistory), SpaceHistoryEntry{
		Edited: change.Edited,
		Old:    change.Old,
	})
	h.ledger.spaces.put(space.ID, space)
}

func (h *historyRecorder) PostUpdated(change PostChange) {
	post, ok := h.ledger.posts.get(change.PostID)
	if !ok {
		return
	}
	post.EditHistory = append(slices.Clone(post.EditHistory), PostHistoryEntry{
		Edited: change.Edited,
		Old:    change.Old,
	})
	h.ledger.posts.put(post.ID, post)
}

func (l *Ledger) notifyProfileUpdated(change ProfileChange) {
	l.history.ProfileUpdated(change)
	for _, observer := range l.observers {
		observer.ProfileUpdated(change)
	}
}

func (l *Ledger) notifySpaceUpdated(change SpaceChange) {
	l.history.SpaceUpdated(change)
	for _, observer := range l.observers {
		observer.SpaceUpdated(change)
	}
}

func (l *Ledger) notifyPostUpdated(change PostChange) {
	l.history.PostUpdated(change)
	for _, observer := range l.observers {
		observer.PostUpdated(change)
	}
}
