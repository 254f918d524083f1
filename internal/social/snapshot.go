package social

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
)

type AccountFollow struct {
	Follower AccountID
	Target   AccountID
	Sequence uint64
}

type SpaceFollow struct {
	Follower AccountID
	SpaceID  SpaceID
	Sequence uint64
}

type PostScoreRecord struct {
	Account AccountID
	PostID  PostID
	Action  scoring.Action
	Diff    int16
}

type SpaceScoreRecord struct {
	Account AccountID
	SpaceID SpaceID
	Action  scoring.Action
	Diff    int16
}

type ReputationRecord struct {
	Target  AccountID
	Actor   AccountID
	Action  scoring.Action
	Applied int32
	Count   uint32
}

type ShareCount struct {
	Account AccountID
	PostID  PostID
	Count   uint16
}

type ProfileHistory struct {
	Account AccountID
	Entries []ProfileHistoryEntry
}

// Snapshot is the complete ledger state in a deterministic order. Reverse
// indices are not part of it; Restore rebuilds them.
type Snapshot struct {
	Accounts         []SocialAccount
	ProfileHistories []ProfileHistory
	Spaces           []Space
	Posts            []Post
	Reactions        []Reaction
	AccountFollows   []AccountFollow
	SpaceFollows     []SpaceFollow
	PostScores       []PostScoreRecord
	SpaceScores      []SpaceScoreRecord
	Reputation       []ReputationRecord
	PostShares       []ShareCount
	NextSpaceID      SpaceID
	NextPostID       PostID
	NextReactionID   ReactionID
	FollowSequence   uint64
}

// Snapshot exports the current state.
func (l *Ledger) Snapshot() Snapshot {
	snapshot := Snapshot{
		NextSpaceID:    SpaceID(l.nextSpaceID.get()),
		NextPostID:     PostID(l.nextPostID.get()),
		NextReactionID: ReactionID(l.nextReactionID.get()),
		FollowSequence: l.followSequence.get(),
	}

	l.accounts.each(func(_ AccountID, account SocialAccount) {
		account.Profile = cloneProfile(account.Profile)
		snapshot.Accounts = append(snapshot.Accounts, account)
	})
	slices.SortFunc(snapshot.Accounts, func(a, b SocialAccount) int { return cmp.Compare(a.ID, b.ID) })

	l.profileHistory.each(func(account AccountID, entries []ProfileHistoryEntry) {
		snapshot.ProfileHistories = append(snapshot.ProfileHistories, ProfileHistory{Account: account, Entries: slices.Clone(entries)})
	})
	slices.SortFunc(snapshot.ProfileHistories, func(a, b ProfileHistory) int { return cmp.Compare(a.Account, b.Account) })

	l.spaces.each(func(_ SpaceID, space Space) {
		snapshot.Spaces = append(snapshot.Spaces, cloneSpace(space))
	})
	slices.SortFunc(snapshot.Spaces, func(a, b Space) int { return cmp.Compare(a.ID, b.ID) })

	l.posts.each(func(_ PostID, post Post) {
		snapshot.Posts = append(snapshot.Posts, clonePost(post))
	})
	slices.SortFunc(snapshot.Posts, func(a, b Post) int { return cmp.Compare(a.ID, b.ID) })

	l.reactions.each(func(_ ReactionID, reaction Reaction) {
		snapshot.Reactions = append(snapshot.Reactions, reaction)
	})
	slices.SortFunc(snapshot.Reactions, func(a, b Reaction) int { return cmp.Compare(a.ID, b.ID) })

	l.accountFollowEdges.each(func(edge accountPair, sequence uint64) {
		snapshot.AccountFollows = append(snapshot.AccountFollows, AccountFollow{Follower: edge.Follower, Target: edge.Target, Sequence: sequence})
	})
	slices.SortFunc(snapshot.AccountFollows, func(a, b AccountFollow) int { return cmp.Compare(a.Sequence, b.Sequence) })

	l.spaceFollowEdges.each(func(edge spaceFollowKey, sequence uint64) {
		snapshot.SpaceFollows = append(snapshot.SpaceFollows, SpaceFollow{Follower: edge.Follower, SpaceID: edge.SpaceID, Sequence: sequence})
	})
	slices.SortFunc(snapshot.SpaceFollows, func(a, b SpaceFollow) int { return cmp.Compare(a.Sequence, b.Sequence) })

	l.postScores.each(func(key postScoreKey, diff int16) {
		snapshot.PostScores = append(snapshot.PostScores, PostScoreRecord{Account: key.Account, PostID: key.PostID, Action: key.Action, Diff: diff})
	})
	slices.SortFunc(snapshot.PostScores, func(a, b PostScoreRecord) int {
		return cmp.Or(cmp.Compare(a.PostID, b.PostID), cmp.Compare(a.Account, b.Account), cmp.Compare(a.Action, b.Action))
	})

	l.spaceScores.each(func(key spaceScoreKey, diff int16) {
		snapshot.SpaceScores = append(snapshot.SpaceScores, SpaceScoreRecord{Account: key.Account, SpaceID: key.SpaceID, Action: key.Action, Diff: diff})
	})
	slices.SortFunc(snapshot.SpaceScores, func(a, b SpaceScoreRecord) int {
		return cmp.Or(cmp.Compare(a.SpaceID, b.SpaceID), cmp.Compare(a.Account, b.Account), cmp.Compare(a.Action, b.Action))
	})

	l.reputationLedger.each(func(key reputationKey, entry ReputationEntry) {
		snapshot.Reputation = append(snapshot.Reputation, ReputationRecord{
			Target:  key.Target,
			Actor:   key.Actor,
			Action:  key.Action,
			Applied: entry.Applied,
			Count:   entry.Count,
		})
	})
	slices.SortFunc(snapshot.Reputation, func(a, b ReputationRecord) int {
		return cmp.Or(cmp.Compare(a.Target, b.Target), cmp.Compare(a.Actor, b.Actor), cmp.Compare(a.Action, b.Action))
	})

	l.postSharesByAccount.each(func(key accountPostKey, count uint16) {
		snapshot.PostShares = append(snapshot.PostShares, ShareCount{Account: key.Account, PostID: key.PostID, Count: count})
	})
	slices.SortFunc(snapshot.PostShares, func(a, b ShareCount) int {
		return cmp.Or(cmp.Compare(a.PostID, b.PostID), cmp.Compare(a.Account, b.Account))
	})

	return snapshot
}

// Restore builds a ledger from a snapshot, rebuilding every reverse index.
func Restore(cfg Config, snapshot Snapshot) (*Ledger, error) {
	l := NewLedger(cfg)

	for _, account := range snapshot.Accounts {
		account.Profile = cloneProfile(account.Profile)
		if account.Reputation == 0 {
			account.Reputation = 1
		}
		l.accounts.put(account.ID, account)
		if account.Profile == nil {
			continue
		}
		key := strings.ToLower(account.Profile.Handle)
		if l.profileHandles.has(key) {
			return nil, fmt.Errorf("%w: profile handle %s", ErrHandleNotUnique, account.Profile.Handle)
		}
		l.profileHandles.put(key, account.ID)
	}
	for _, history := range snapshot.ProfileHistories {
		l.profileHistory.put(history.Account, slices.Clone(history.Entries))
	}

	spaces := slices.Clone(snapshot.Spaces)
	slices.SortFunc(spaces, func(a, b Space) int { return cmp.Compare(a.ID, b.ID) })
	for _, space := range spaces {
		l.spaces.put(space.ID, cloneSpace(space))
		if space.Handle != nil {
			key := strings.ToLower(*space.Handle)
			if l.spaceHandles.has(key) {
				return nil, fmt.Errorf("%w: space handle %s", ErrHandleNotUnique, *space.Handle)
			}
			l.spaceHandles.put(key, space.ID)
		}
		appendIndex(l.spaceIDsByOwner, space.Owner(), space.ID)
	}

	posts := slices.Clone(snapshot.Posts)
	slices.SortFunc(posts, func(a, b Post) int { return cmp.Compare(a.ID, b.ID) })
	for _, post := range posts {
		if post.Extension == nil {
			post.Extension = RegularPost{}
		}
		l.posts.put(post.ID, clonePost(post))
		if post.SpaceID != nil {
			appendIndex(l.postIDsBySpace, *post.SpaceID, post.ID)
		}
		switch ext := post.Extension.(type) {
		case Comment:
			parent := ext.RootPostID
			if ext.ParentID != nil {
				parent = *ext.ParentID
			}
			appendIndex(l.replyIDsByParent, parent, post.ID)
		case SharedPost:
			appendIndex(l.sharedPostIDsByOriginal, ext.OriginalPostID, post.ID)
		}
	}

	reactions := slices.Clone(snapshot.Reactions)
	slices.SortFunc(reactions, func(a, b Reaction) int { return cmp.Compare(a.ID, b.ID) })
	for _, reaction := range reactions {
		key := accountPostKey{Account: reaction.Owner(), PostID: reaction.PostID}
		if l.reactionByAccountPost.has(key) {
			return nil, fmt.Errorf("%w: %s on post %d", ErrAlreadyReacted, reaction.Owner(), reaction.PostID)
		}
		l.reactions.put(reaction.ID, reaction)
		appendIndex(l.reactionIDsByPost, reaction.PostID, reaction.ID)
		l.reactionByAccountPost.put(key, reaction.ID)
	}

	accountFollows := slices.Clone(snapshot.AccountFollows)
	slices.SortFunc(accountFollows, func(a, b AccountFollow) int { return cmp.Compare(a.Sequence, b.Sequence) })
	for _, follow := range accountFollows {
		l.accountFollowEdges.put(accountPair{Follower: follow.Follower, Target: follow.Target}, follow.Sequence)
		appendIndex(l.accountFollowers, follow.Target, follow.Follower)
		appendIndex(l.accountsFollowedByAccount, follow.Follower, follow.Target)
	}

	spaceFollows := slices.Clone(snapshot.SpaceFollows)
	slices.SortFunc(spaceFollows, func(a, b SpaceFollow) int { return cmp.Compare(a.Sequence, b.Sequence) })
	for _, follow := range spaceFollows {
		l.spaceFollowEdges.put(spaceFollowKey{Follower: follow.Follower, SpaceID: follow.SpaceID}, follow.Sequence)
		appendIndex(l.spaceFollowers, follow.SpaceID, follow.Follower)
		appendIndex(l.spacesFollowedByAccount, follow.Follower, follow.SpaceID)
	}

	for _, record := range snapshot.PostScores {
		l.postScores.put(postScoreKey{Account: record.Account, PostID: record.PostID, Action: record.Action}, record.Diff)
	}
	for _, record := range snapshot.SpaceScores {
		l.spaceScores.put(spaceScoreKey{Account: record.Account, SpaceID: record.SpaceID, Action: record.Action}, record.Diff)
	}
	for _, record := range snapshot.Reputation {
		l.reputationLedger.put(
			reputationKey{Target: record.Target, Actor: record.Actor, Action: record.Action},
			ReputationEntry{Applied: record.Applied, Count: record.Count},
		)
	}
	for _, share := range snapshot.PostShares {
		l.postSharesByAccount.put(accountPostKey{Account: share.Account, PostID: share.PostID}, share.Count)
	}

	nextSpace := uint64(snapshot.NextSpaceID)
	if len(spaces) > 0 {
		nextSpace = max(nextSpace, uint64(spaces[len(spaces)-1].ID)+1)
	}
	nextPost := uint64(snapshot.NextPostID)
	if len(posts) > 0 {
		nextPost = max(nextPost, uint64(posts[len(posts)-1].ID)+1)
	}
	nextReaction := uint64(snapshot.NextReactionID)
	if len(reactions) > 0 {
		nextReaction = max(nextReaction, uint64(reactions[len(reactions)-1].ID)+1)
	}
	sequence := snapshot.FollowSequence
	if len(accountFollows) > 0 {
		sequence = max(sequence, accountFollows[len(accountFollows)-1].Sequence)
	}
	if len(spaceFollows) > 0 {
		sequence = max(sequence, spaceFollows[len(spaceFollows)-1].Sequence)
	}
	l.nextSpaceID.set(max(nextSpace, 1))
	l.nextPostID.set(max(nextPost, 1))
	l.nextReactionID.set(max(nextReaction, 1))
	l.followSequence.set(sequence)

	return l, nil
}
