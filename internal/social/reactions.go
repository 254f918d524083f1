package social

import (
	"fmt"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
)

// CreatePostReaction records actor's vote on a post or comment.
func (l *Ledger) CreatePostReaction(actor AccountID, postID PostID, kind ReactionKind) (ReactionID, error) {
	if err := requireAccountID(actor); err != nil {
		return 0, err
	}
	if !kind.valid() {
		return 0, ErrInvalidReactionKind
	}
	var created ReactionID
	err := l.atomically(func() error {
		post, ok := l.posts.get(postID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrPostNotFound, postID)
		}
		key := accountPostKey{Account: actor, PostID: postID}
		if l.reactionByAccountPost.has(key) {
			return ErrAlreadyReacted
		}

		id := ReactionID(l.nextReactionID.get())
		l.nextReactionID.set(uint64(id) + 1)
		l.reactions.put(id, Reaction{
			ID:      id,
			PostID:  postID,
			Created: l.stamp(actor),
			Kind:    kind,
		})
		appendIndex(l.reactionIDsByPost, postID, id)
		l.reactionByAccountPost.put(key, id)

		l.posts.put(postID, countVote(post, kind, 1))

		if err := l.scorer.ReactionCreated(actor, postID, kind); err != nil {
			return err
		}
		l.emit(Event{Name: EventPostReactionCreated, Actor: actor, PostID: postID, ReactionID: id})
		created = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// UpdatePostReaction flips an existing vote. The previous score effect is
// reversed before the new one is applied.
func (l *Ledger) UpdatePostReaction(actor AccountID, postID PostID, reactionID ReactionID, kind ReactionKind) error {
	if !kind.valid() {
		return ErrInvalidReactionKind
	}
	return l.atomically(func() error {
		post, reaction, err := l.ownedReaction(actor, postID, reactionID)
		if err != nil {
			return err
		}
		if reaction.Kind == kind {
			return ErrSameReaction
		}

		previous := reaction.Kind
		post = countVote(post, previous, -1)
		post = countVote(post, kind, 1)
		l.posts.put(postID, post)

		edited := l.stamp(actor)
		reaction.Kind = kind
		reaction.Updated = &edited
		l.reactions.put(reactionID, reaction)

		if err := l.scorer.ReactionDeleted(actor, postID, previous); err != nil {
			return err
		}
		if err := l.scorer.ReactionCreated(actor, postID, kind); err != nil {
			return err
		}
		l.emit(Event{Name: EventPostReactionUpdated, Actor: actor, PostID: postID, ReactionID: reactionID})
		return nil
	})
}

// DeletePostReaction removes a vote and reverses its score effect.
func (l *Ledger) DeletePostReaction(actor AccountID, postID PostID, reactionID ReactionID) error {
	return l.atomically(func() error {
		post, reaction, err := l.ownedReaction(actor, postID, reactionID)
		if err != nil {
			return err
		}

		l.posts.put(postID, countVote(post, reaction.Kind, -1))
		l.reactions.remove(reactionID)
		removeIndex(l.reactionIDsByPost, postID, reactionID)
		l.reactionByAccountPost.remove(accountPostKey{Account: actor, PostID: postID})

		if err := l.scorer.ReactionDeleted(actor, postID, reaction.Kind); err != nil {
			return err
		}
		l.emit(Event{Name: EventPostReactionDeleted, Actor: actor, PostID: postID, ReactionID: reactionID})
		return nil
	})
}

func (l *Ledger) ownedReaction(actor AccountID, postID PostID, reactionID ReactionID) (Post, Reaction, error) {
	post, ok := l.posts.get(postID)
	if !ok {
		return Post{}, Reaction{}, fmt.Errorf("%w: %d", ErrPostNotFound, postID)
	}
	reaction, ok := l.reactions.get(reactionID)
	if !ok || reaction.PostID != postID {
		return Post{}, Reaction{}, fmt.Errorf("%w: %d", ErrReactionNotFound, reactionID)
	}
	if reaction.Owner() != actor {
		return Post{}, Reaction{}, ErrNotReactionOwner
	}
	return post, reaction, nil
}

func countVote(post Post, kind ReactionKind, delta int64) Post {
	switch kind {
	case Upvote:
		post.UpvotesCount = scoring.AddUint32(post.UpvotesCount, delta)
	case Downvote:
		post.DownvotesCount = scoring.AddUint32(post.DownvotesCount, delta)
	}
	return post
}

// voteAction maps a vote on post to its scoring action.
func voteAction(post Post, kind ReactionKind) scoring.Action {
	comment := post.IsComment()
	switch {
	case kind == Upvote && comment:
		return scoring.UpvoteComment
	case kind == Upvote:
		return scoring.UpvotePost
	case comment:
		return scoring.DownvoteComment
	default:
		return scoring.DownvotePost
	}
}
