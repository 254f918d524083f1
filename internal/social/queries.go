package social

import (
	"slices"
	"strings"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
	"github.com/F3Joule/subsocial-v2/internal/validation"
)

// Read accessors return copies; mutating them never affects the ledger.

func (l *Ledger) SocialAccount(id AccountID) (SocialAccount, bool) {
	account, ok := l.accounts.get(id)
	if !ok {
		return SocialAccount{}, false
	}
	account.Profile = cloneProfile(account.Profile)
	return account, true
}

// AccountByHandle resolves a profile handle case-insensitively.
func (l *Ledger) AccountByHandle(handle string) (AccountID, bool) {
	return l.profileHandles.get(strings.ToLower(handle))
}

func (l *Ledger) ProfileHistory(id AccountID) []ProfileHistoryEntry {
	entries, _ := l.profileHistory.get(id)
	return slices.Clone(entries)
}

func (l *Ledger) Space(id SpaceID) (Space, bool) {
	space, ok := l.spaces.get(id)
	if !ok {
		return Space{}, false
	}
	return cloneSpace(space), true
}

// SpaceByHandle resolves a space handle case-insensitively.
func (l *Ledger) SpaceByHandle(handle string) (SpaceID, bool) {
	return l.spaceHandles.get(strings.ToLower(handle))
}

func (l *Ledger) SpaceIDsByOwner(owner AccountID) []SpaceID {
	ids, _ := l.spaceIDsByOwner.get(owner)
	return slices.Clone(ids)
}

func (l *Ledger) Post(id PostID) (Post, bool) {
	post, ok := l.posts.get(id)
	if !ok {
		return Post{}, false
	}
	return clonePost(post), true
}

func (l *Ledger) PostIDsBySpace(id SpaceID) []PostID {
	ids, _ := l.postIDsBySpace.get(id)
	return slices.Clone(ids)
}

// ReplyIDs lists the direct replies to a post or comment.
func (l *Ledger) ReplyIDs(parent PostID) []PostID {
	ids, _ := l.replyIDsByParent.get(parent)
	return slices.Clone(ids)
}

// CommentIDsByRoot lists every comment in the thread under root, depth first.
func (l *Ledger) CommentIDsByRoot(root PostID) []PostID {
	var ids []PostID
	var walk func(PostID)
	walk = func(parent PostID) {
		replies, _ := l.replyIDsByParent.get(parent)
		for _, reply := range replies {
			ids = append(ids, reply)
			walk(reply)
		}
	}
	walk(root)
	return ids
}

func (l *Ledger) SharedPostIDs(original PostID) []PostID {
	ids, _ := l.sharedPostIDsByOriginal.get(original)
	return slices.Clone(ids)
}

// PostSharesByAccount counts how many times account shared original.
func (l *Ledger) PostSharesByAccount(account AccountID, original PostID) uint16 {
	count, _ := l.postSharesByAccount.get(accountPostKey{Account: account, PostID: original})
	return count
}

func (l *Ledger) Reaction(id ReactionID) (Reaction, bool) {
	return l.reactions.get(id)
}

func (l *Ledger) ReactionIDsByPost(post PostID) []ReactionID {
	ids, _ := l.reactionIDsByPost.get(post)
	return slices.Clone(ids)
}

// ReactionByAccount returns the id of account's reaction on post, if any.
func (l *Ledger) ReactionByAccount(account AccountID, post PostID) (ReactionID, bool) {
	return l.reactionByAccountPost.get(accountPostKey{Account: account, PostID: post})
}

func (l *Ledger) AccountFollowers(target AccountID) []AccountID {
	ids, _ := l.accountFollowers.get(target)
	return slices.Clone(ids)
}

func (l *Ledger) AccountsFollowedBy(follower AccountID) []AccountID {
	ids, _ := l.accountsFollowedByAccount.get(follower)
	return slices.Clone(ids)
}

func (l *Ledger) IsAccountFollower(follower, target AccountID) bool {
	return l.accountFollowEdges.has(accountPair{Follower: follower, Target: target})
}

func (l *Ledger) SpaceFollowers(id SpaceID) []AccountID {
	ids, _ := l.spaceFollowers.get(id)
	return slices.Clone(ids)
}

func (l *Ledger) SpacesFollowedBy(follower AccountID) []SpaceID {
	ids, _ := l.spacesFollowedByAccount.get(follower)
	return slices.Clone(ids)
}

func (l *Ledger) IsSpaceFollower(follower AccountID, id SpaceID) bool {
	return l.spaceFollowEdges.has(spaceFollowKey{Follower: follower, SpaceID: id})
}

// PostScoreEntry returns the delta recorded for actor's action on a post.
func (l *Ledger) PostScoreEntry(actor AccountID, post PostID, action scoring.Action) (int16, bool) {
	return l.postScores.get(postScoreKey{Account: actor, PostID: post, Action: action})
}

// SpaceScoreEntry returns the delta recorded for actor's action on a space.
func (l *Ledger) SpaceScoreEntry(actor AccountID, space SpaceID, action scoring.Action) (int16, bool) {
	return l.spaceScores.get(spaceScoreKey{Account: actor, SpaceID: space, Action: action})
}

// ReputationEntry returns the reputation actor's action has applied to target.
func (l *Ledger) ReputationEntry(target, actor AccountID, action scoring.Action) (ReputationEntry, bool) {
	return l.reputationLedger.get(reputationKey{Target: target, Actor: actor, Action: action})
}

func (l *Ledger) NextSpaceID() SpaceID {
	return SpaceID(l.nextSpaceID.get())
}

func (l *Ledger) NextPostID() PostID {
	return PostID(l.nextPostID.get())
}

func (l *Ledger) NextReactionID() ReactionID {
	return ReactionID(l.nextReactionID.get())
}

// Validator exposes the ledger's validator so callers can check account ids
// and handles with the same limits.
func (l *Ledger) Validator() validation.Validator {
	return l.validator
}
