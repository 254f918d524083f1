package social

import (
	"fmt"
	"slices"
	"strings"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
	"github.com/samber/lo"
)

// CreateSpace creates a space owned by actor. The owner follows the space from
// the start, so FollowersCount begins at 1; that follow is never scored.
func (l *Ledger) CreateSpace(actor AccountID, handle *string, content string) (SpaceID, error) {
	if err := requireAccountID(actor); err != nil {
		return 0, err
	}
	var created SpaceID
	err := l.atomically(func() error {
		if err := l.validator.Content(content); err != nil {
			return err
		}
		var handleKey string
		if handle != nil {
			key, err := l.validator.Handle(*handle)
			if err != nil {
				return err
			}
			if l.spaceHandles.has(key) {
				return fmt.Errorf("%w: %s", ErrHandleNotUnique, *handle)
			}
			handleKey = key
		}

		id := SpaceID(l.nextSpaceID.get())
		l.nextSpaceID.set(uint64(id) + 1)

		space := Space{
			ID:             id,
			Created:        l.stamp(actor),
			Content:        content,
			FollowersCount: 1,
		}
		if handle != nil {
			space.Handle = stringPtr(*handle)
			l.spaceHandles.put(handleKey, id)
		}
		l.spaces.put(id, space)
		appendIndex(l.spaceIDsByOwner, actor, id)

		owner := l.account(actor)
		owner.FollowingSpacesCount = scoring.AddUint16(owner.FollowingSpacesCount, 1)
		l.accounts.put(actor, owner)
		l.linkSpaceFollower(actor, id)

		l.emit(Event{Name: EventSpaceCreated, Actor: actor, SpaceID: id})
		created = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// UpdateSpace changes writers, handle and/or content of a space owned by actor.
// An empty handle removes the space's handle.
func (l *Ledger) UpdateSpace(actor AccountID, id SpaceID, update SpaceUpdate) error {
	return l.atomically(func() error {
		space, ok := l.spaces.get(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrSpaceNotFound, id)
		}
		if space.Owner() != actor {
			return ErrNotSpaceOwner
		}
		if update.isEmpty() {
			return ErrNoUpdatesInSpace
		}

		after := cloneSpace(space)
		var old SpaceUpdate

		if update.Writers != nil {
			writers := lo.Uniq(*update.Writers)
			for _, writer := range writers {
				if err := requireAccountID(writer); err != nil {
					return err
				}
			}
			if !slices.Equal(writers, space.Writers) {
				previous := append([]AccountID{}, space.Writers...)
				old.Writers = &previous
				after.Writers = writers
			}
		}

		if update.Handle != nil {
			current := ""
			if space.Handle != nil {
				current = *space.Handle
			}
			if *update.Handle != current {
				if err := l.moveSpaceHandle(id, current, *update.Handle); err != nil {
					return err
				}
				old.Handle = stringPtr(current)
				if *update.Handle == "" {
					after.Handle = nil
				} else {
					after.Handle = stringPtr(*update.Handle)
				}
			}
		}

		if update.Content != nil && *update.Content != space.Content {
			if err := l.validator.Content(*update.Content); err != nil {
				return err
			}
			old.Content = stringPtr(space.Content)
			after.Content = *update.Content
		}

		if old.isEmpty() {
			return ErrNoUpdatesInSpace
		}

		edited := l.stamp(actor)
		after.Updated = &edited
		l.spaces.put(id, after)

		l.notifySpaceUpdated(SpaceChange{
			SpaceID: id,
			Edited:  edited,
			Before:  cloneSpace(space),
			After:   cloneSpace(after),
			Old:     old,
		})
		l.emit(Event{Name: EventSpaceUpdated, Actor: actor, SpaceID: id})
		return nil
	})
}

func (l *Ledger) moveSpaceHandle(id SpaceID, current, next string) error {
	oldKey := strings.ToLower(current)
	if next == "" {
		if current != "" {
			l.spaceHandles.remove(oldKey)
		}
		return nil
	}
	newKey, err := l.validator.Handle(next)
	if err != nil {
		return err
	}
	if newKey != oldKey && l.spaceHandles.has(newKey) {
		return fmt.Errorf("%w: %s", ErrHandleNotUnique, next)
	}
	if current != "" {
		l.spaceHandles.remove(oldKey)
	}
	l.spaceHandles.put(newKey, id)
	return nil
}
