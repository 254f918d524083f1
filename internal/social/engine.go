package social

import (
	"fmt"
	"math"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
)

// ScoreKeeper applies and reverses the reputation effects of graph activity.
// The ledger calls it after its own writes, inside the same transaction; an
// error aborts the whole operation.
type ScoreKeeper interface {
	SpaceFollowed(actor AccountID, space SpaceID) error
	SpaceUnfollowed(actor AccountID, space SpaceID) error
	AccountFollowed(actor, target AccountID) error
	AccountUnfollowed(actor, target AccountID) error
	CommentCreated(actor AccountID, comment PostID) error
	PostShared(actor AccountID, original PostID) error
	ReactionCreated(actor AccountID, post PostID, kind ReactionKind) error
	ReactionDeleted(actor AccountID, post PostID, kind ReactionKind) error
}

// NoScoring is a ScoreKeeper that ignores every event.
type NoScoring struct{}

func (NoScoring) SpaceFollowed(AccountID, SpaceID) error                { return nil }
func (NoScoring) SpaceUnfollowed(AccountID, SpaceID) error              { return nil }
func (NoScoring) AccountFollowed(AccountID, AccountID) error            { return nil }
func (NoScoring) AccountUnfollowed(AccountID, AccountID) error          { return nil }
func (NoScoring) CommentCreated(AccountID, PostID) error                { return nil }
func (NoScoring) PostShared(AccountID, PostID) error                    { return nil }
func (NoScoring) ReactionCreated(AccountID, PostID, ReactionKind) error { return nil }
func (NoScoring) ReactionDeleted(AccountID, PostID, ReactionKind) error { return nil }

// scoringEngine is the built-in ScoreKeeper. Every applied content delta is
// recorded per (actor, target, action) so that reversal subtracts exactly what
// was added, whatever the owner's reputation has become since.
type scoringEngine struct {
	ledger *Ledger
}

func (e *scoringEngine) SpaceFollowed(actor AccountID, space SpaceID) error {
	return e.applySpaceScore(actor, space, scoring.FollowSpace)
}

func (e *scoringEngine) SpaceUnfollowed(actor AccountID, space SpaceID) error {
	return e.revertSpaceScore(actor, space, scoring.FollowSpace)
}

func (e *scoringEngine) AccountFollowed(actor, target AccountID) error {
	followed := e.ledger.account(target)
	diff := e.ledger.weights.ScoreDiff(followed.Reputation, scoring.FollowAccount)
	e.changeAccountReputation(target, actor, diff, scoring.FollowAccount)
	return nil
}

func (e *scoringEngine) AccountUnfollowed(actor, target AccountID) error {
	e.revertAccountReputation(target, actor, scoring.FollowAccount, math.MaxInt32)
	return nil
}

func (e *scoringEngine) CommentCreated(actor AccountID, comment PostID) error {
	post, ok := e.ledger.posts.get(comment)
	if !ok {
		return fmt.Errorf("%w: %d", ErrPostNotFound, comment)
	}
	ext, ok := post.AsComment()
	if !ok {
		return fmt.Errorf("%w: %d is not a comment", ErrPostNotFound, comment)
	}
	return e.applyPostScore(actor, ext.RootPostID, scoring.CreateComment)
}

// PostShared scores the original unless the actor shares their own content.
func (e *scoringEngine) PostShared(actor AccountID, original PostID) error {
	post, ok := e.ledger.posts.get(original)
	if !ok {
		return fmt.Errorf("%w: %d", ErrOriginalPostNotFound, original)
	}
	if post.Creator() == actor {
		return nil
	}
	action := scoring.SharePost
	if post.IsComment() {
		action = scoring.ShareComment
	}
	return e.applyPostScore(actor, original, action)
}

func (e *scoringEngine) ReactionCreated(actor AccountID, post PostID, kind ReactionKind) error {
	target, ok := e.ledger.posts.get(post)
	if !ok {
		return fmt.Errorf("%w: %d", ErrPostNotFound, post)
	}
	action := voteAction(target, kind)
	if opposite, ok := oppositeVote(action); ok {
		if err := e.revertPostScore(actor, post, opposite); err != nil {
			return err
		}
	}
	return e.applyPostScore(actor, post, action)
}

func (e *scoringEngine) ReactionDeleted(actor AccountID, post PostID, kind ReactionKind) error {
	target, ok := e.ledger.posts.get(post)
	if !ok {
		return fmt.Errorf("%w: %d", ErrPostNotFound, post)
	}
	return e.revertPostScore(actor, post, voteAction(target, kind))
}

func (e *scoringEngine) applyPostScore(actor AccountID, postID PostID, action scoring.Action) error {
	post, ok := e.ledger.posts.get(postID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrPostNotFound, postID)
	}
	key := postScoreKey{Account: actor, PostID: postID, Action: action}
	if e.ledger.postScores.has(key) {
		return nil
	}

	owner := e.ledger.account(post.Creator())
	diff := e.ledger.weights.ScoreDiff(owner.Reputation, action)

	post.Score = scoring.AddInt32(post.Score, int32(diff))
	e.ledger.posts.put(postID, post)
	e.adjustSpaceOfPost(post, int32(diff))
	e.ledger.postScores.put(key, diff)

	e.changeAccountReputation(owner.ID, actor, diff, action)
	return nil
}

func (e *scoringEngine) revertPostScore(actor AccountID, postID PostID, action scoring.Action) error {
	key := postScoreKey{Account: actor, PostID: postID, Action: action}
	diff, ok := e.ledger.postScores.get(key)
	if !ok {
		return nil
	}
	post, ok := e.ledger.posts.get(postID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrPostNotFound, postID)
	}

	post.Score = scoring.AddInt32(post.Score, -int32(diff))
	e.ledger.posts.put(postID, post)
	e.adjustSpaceOfPost(post, -int32(diff))
	e.ledger.postScores.remove(key)

	e.revertAccountReputation(post.Creator(), actor, action, int32(max(diff, 0)))
	return nil
}

// adjustSpaceOfPost carries a post's score delta over to its space.
func (e *scoringEngine) adjustSpaceOfPost(post Post, delta int32) {
	if post.IsComment() || post.SpaceID == nil {
		return
	}
	e.ledger.addSpaceScore(*post.SpaceID, delta)
}

func (e *scoringEngine) applySpaceScore(actor AccountID, spaceID SpaceID, action scoring.Action) error {
	space, ok := e.ledger.spaces.get(spaceID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrSpaceNotFound, spaceID)
	}
	key := spaceScoreKey{Account: actor, SpaceID: spaceID, Action: action}
	if e.ledger.spaceScores.has(key) {
		return nil
	}

	owner := e.ledger.account(space.Owner())
	diff := e.ledger.weights.ScoreDiff(owner.Reputation, action)

	space.Score = scoring.AddInt32(space.Score, int32(diff))
	e.ledger.spaces.put(spaceID, space)
	e.ledger.spaceScores.put(key, diff)

	e.changeAccountReputation(owner.ID, actor, diff, action)
	return nil
}

func (e *scoringEngine) revertSpaceScore(actor AccountID, spaceID SpaceID, action scoring.Action) error {
	key := spaceScoreKey{Account: actor, SpaceID: spaceID, Action: action}
	diff, ok := e.ledger.spaceScores.get(key)
	if !ok {
		return nil
	}
	space, ok := e.ledger.spaces.get(spaceID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrSpaceNotFound, spaceID)
	}

	space.Score = scoring.AddInt32(space.Score, -int32(diff))
	e.ledger.spaces.put(spaceID, space)
	e.ledger.spaceScores.remove(key)

	e.revertAccountReputation(space.Owner(), actor, action, int32(max(diff, 0)))
	return nil
}

// changeAccountReputation adds diff to target's reputation only when diff is
// positive. The amount actually applied, zero included, is recorded under
// (target, actor, action).
func (e *scoringEngine) changeAccountReputation(target, actor AccountID, diff int16, action scoring.Action) {
	account := e.ledger.account(target)
	var applied int32
	if diff > 0 {
		before := account.Reputation
		account.Reputation = scoring.AddUint32(before, int64(diff))
		applied = int32(account.Reputation - before)
	}
	e.ledger.accounts.put(target, account)

	key := reputationKey{Target: target, Actor: actor, Action: action}
	entry, _ := e.ledger.reputationLedger.get(key)
	entry.Applied = scoring.AddInt32(entry.Applied, applied)
	entry.Count = scoring.AddUint32(entry.Count, 1)
	e.ledger.reputationLedger.put(key, entry)

	if applied != 0 {
		e.ledger.emit(Event{Name: EventAccountReputationChanged, Actor: actor, Account: target, Delta: applied})
	}
}

// revertAccountReputation takes back at most limit of what was recorded under
// (target, actor, action). Reputation never drops below 1.
func (e *scoringEngine) revertAccountReputation(target, actor AccountID, action scoring.Action, limit int32) {
	key := reputationKey{Target: target, Actor: actor, Action: action}
	entry, ok := e.ledger.reputationLedger.get(key)
	if !ok {
		return
	}

	amount := min(max(limit, 0), entry.Applied)
	if amount > 0 {
		account := e.ledger.account(target)
		account.Reputation = max(scoring.AddUint32(account.Reputation, -int64(amount)), 1)
		e.ledger.accounts.put(target, account)
		e.ledger.emit(Event{Name: EventAccountReputationChanged, Actor: actor, Account: target, Delta: -amount})
	}

	entry.Applied -= amount
	entry.Count = scoring.AddUint32(entry.Count, -1)
	if entry.Count == 0 {
		e.ledger.reputationLedger.remove(key)
		return
	}
	e.ledger.reputationLedger.put(key, entry)
}

func oppositeVote(action scoring.Action) (scoring.Action, bool) {
	switch action {
	case scoring.UpvotePost:
		return scoring.DownvotePost, true
	case scoring.DownvotePost:
		return scoring.UpvotePost, true
	case scoring.UpvoteComment:
		return scoring.DownvoteComment, true
	case scoring.DownvoteComment:
		return scoring.UpvoteComment, true
	default:
		return 0, false
	}
}

// ScoreDiff is the delta an action is worth against content owned by an
// account with the given reputation.
func (l *Ledger) ScoreDiff(magnitude uint32, action scoring.Action) int16 {
	return l.weights.ScoreDiff(magnitude, action)
}
