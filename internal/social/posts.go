package social

import (
	"fmt"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
)

// CreatePost creates a regular post, a comment or a share, depending on
// extension. A nil extension means RegularPost. Comments never belong to a
// space, so spaceID is ignored for them.
func (l *Ledger) CreatePost(actor AccountID, spaceID *SpaceID, extension PostExtension, content string) (PostID, error) {
	if err := requireAccountID(actor); err != nil {
		return 0, err
	}
	if extension == nil {
		extension = RegularPost{}
	}
	extension, err := normalizeExtension(extension)
	if err != nil {
		return 0, err
	}

	var created PostID
	err = l.atomically(func() error {
		if err := l.validator.Content(content); err != nil {
			return err
		}

		id := PostID(l.nextPostID.get())
		post := Post{
			ID:        id,
			Created:   l.stamp(actor),
			Extension: extension,
			Content:   content,
		}

		switch ext := extension.(type) {
		case RegularPost:
			if spaceID == nil {
				return fmt.Errorf("%w: regular post requires a space", ErrSpaceNotFound)
			}
			if !l.spaces.has(*spaceID) {
				return fmt.Errorf("%w: %d", ErrSpaceNotFound, *spaceID)
			}
			post.SpaceID = spaceIDPtr(*spaceID)
		case SharedPost:
			if err := l.checkShare(ext, spaceID, content); err != nil {
				return err
			}
			if spaceID != nil {
				post.SpaceID = spaceIDPtr(*spaceID)
			}
		case Comment:
			if err := l.checkComment(ext); err != nil {
				return err
			}
		}

		l.nextPostID.set(uint64(id) + 1)
		l.posts.put(id, post)
		if post.SpaceID != nil {
			l.attachToSpace(id, *post.SpaceID)
		}

		switch ext := extension.(type) {
		case Comment:
			root, _ := l.posts.get(ext.RootPostID)
			root.TotalRepliesCount = scoring.AddUint32(root.TotalRepliesCount, 1)
			l.posts.put(root.ID, root)
			parent := ext.RootPostID
			if ext.ParentID != nil {
				parent = *ext.ParentID
			}
			appendIndex(l.replyIDsByParent, parent, id)
			if err := l.scorer.CommentCreated(actor, id); err != nil {
				return err
			}
		case SharedPost:
			original, _ := l.posts.get(ext.OriginalPostID)
			original.SharesCount = scoring.AddUint32(original.SharesCount, 1)
			l.posts.put(original.ID, original)
			appendIndex(l.sharedPostIDsByOriginal, original.ID, id)
			shareKey := accountPostKey{Account: actor, PostID: original.ID}
			shares, _ := l.postSharesByAccount.get(shareKey)
			l.postSharesByAccount.put(shareKey, scoring.AddUint16(shares, 1))
			if err := l.scorer.PostShared(actor, original.ID); err != nil {
				return err
			}
			l.emit(Event{Name: EventPostShared, Actor: actor, PostID: original.ID})
		}

		l.emit(Event{Name: EventPostCreated, Actor: actor, PostID: id})
		created = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// UpdatePost changes the content of a post and, for non-comments, moves it to
// another space.
func (l *Ledger) UpdatePost(actor AccountID, id PostID, update PostUpdate) error {
	return l.atomically(func() error {
		post, ok := l.posts.get(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrPostNotFound, id)
		}
		if post.Creator() != actor {
			return ErrNotPostAuthor
		}
		if update.isEmpty() {
			return ErrNoUpdatesInPost
		}
		if post.IsComment() {
			if update.SpaceID != nil {
				return ErrCannotMoveComment
			}
			if update.Content != nil && *update.Content == post.Content {
				return ErrCommentContentNotDiffer
			}
		}

		after := clonePost(post)
		var old PostUpdate

		if update.Content != nil && *update.Content != post.Content {
			if _, shared := post.AsShared(); shared {
				return ErrSharedPostHasContent
			}
			if err := l.validator.Content(*update.Content); err != nil {
				return err
			}
			old.Content = stringPtr(post.Content)
			after.Content = *update.Content
		}

		if update.SpaceID != nil && (post.SpaceID == nil || *post.SpaceID != *update.SpaceID) {
			if !l.spaces.has(*update.SpaceID) {
				return fmt.Errorf("%w: %d", ErrSpaceNotFound, *update.SpaceID)
			}
			var previous SpaceID
			if post.SpaceID != nil {
				previous = *post.SpaceID
				l.detachFromSpace(id, previous)
				l.addSpaceScore(previous, -post.Score)
			}
			l.attachToSpace(id, *update.SpaceID)
			l.addSpaceScore(*update.SpaceID, post.Score)
			old.SpaceID = spaceIDPtr(previous)
			after.SpaceID = spaceIDPtr(*update.SpaceID)
		}

		if old.isEmpty() {
			return ErrNoUpdatesInPost
		}

		edited := l.stamp(actor)
		after.Updated = &edited
		l.posts.put(id, after)

		l.notifyPostUpdated(PostChange{
			PostID: id,
			Edited: edited,
			Before: clonePost(post),
			After:  clonePost(after),
			Old:    old,
		})
		l.emit(Event{Name: EventPostUpdated, Actor: actor, PostID: id})
		return nil
	})
}

// addSpaceScore moves score earned by a post into or out of a space.
func (l *Ledger) addSpaceScore(id SpaceID, delta int32) {
	if delta == 0 {
		return
	}
	space, ok := l.spaces.get(id)
	if !ok {
		return
	}
	space.Score = scoring.AddInt32(space.Score, delta)
	l.spaces.put(id, space)
}

func (l *Ledger) checkShare(ext SharedPost, spaceID *SpaceID, content string) error {
	original, ok := l.posts.get(ext.OriginalPostID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrOriginalPostNotFound, ext.OriginalPostID)
	}
	if _, shared := original.AsShared(); shared {
		return ErrCannotShareSharedPost
	}
	if content != "" {
		return ErrSharedPostHasContent
	}
	if spaceID != nil && !l.spaces.has(*spaceID) {
		return fmt.Errorf("%w: %d", ErrSpaceNotFound, *spaceID)
	}
	return nil
}

func (l *Ledger) checkComment(ext Comment) error {
	root, ok := l.posts.get(ext.RootPostID)
	if !ok {
		return fmt.Errorf("%w: root %d", ErrPostNotFound, ext.RootPostID)
	}
	if root.IsComment() {
		return fmt.Errorf("%w: root %d is a comment", ErrPostNotFound, ext.RootPostID)
	}
	if ext.ParentID == nil {
		return nil
	}
	depth := l.commentDepth(*ext.ParentID, ext.RootPostID)
	if depth == 0 {
		return fmt.Errorf("%w: %d", ErrUnknownParentComment, *ext.ParentID)
	}
	if depth+1 > l.maxCommentDepth {
		return ErrMaxCommentDepthReached
	}
	return nil
}

// commentDepth returns how many comments lie on the path from id up to root,
// id included, or 0 when id is not a comment under root.
func (l *Ledger) commentDepth(id, root PostID) int {
	depth := 0
	current := id
	for {
		post, ok := l.posts.get(current)
		if !ok {
			return 0
		}
		comment, isComment := post.AsComment()
		if !isComment || comment.RootPostID != root {
			return 0
		}
		depth++
		if comment.ParentID == nil {
			return depth
		}
		current = *comment.ParentID
	}
}

func (l *Ledger) attachToSpace(id PostID, spaceID SpaceID) {
	space, _ := l.spaces.get(spaceID)
	space.PostsCount = scoring.AddUint32(space.PostsCount, 1)
	l.spaces.put(spaceID, space)
	appendIndex(l.postIDsBySpace, spaceID, id)
}

func (l *Ledger) detachFromSpace(id PostID, spaceID SpaceID) {
	space, ok := l.spaces.get(spaceID)
	if !ok {
		return
	}
	space.PostsCount = scoring.AddUint32(space.PostsCount, -1)
	l.spaces.put(spaceID, space)
	removeIndex(l.postIDsBySpace, spaceID, id)
}

func normalizeExtension(extension PostExtension) (PostExtension, error) {
	switch ext := extension.(type) {
	case RegularPost, SharedPost:
		return ext, nil
	case Comment:
		return copyComment(ext), nil
	case *RegularPost:
		if ext != nil {
			return *ext, nil
		}
	case *Comment:
		if ext != nil {
			return copyComment(*ext), nil
		}
	case *SharedPost:
		if ext != nil {
			return *ext, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidPostExtension, extension)
}

func copyComment(comment Comment) Comment {
	if comment.ParentID != nil {
		parent := *comment.ParentID
		comment.ParentID = &parent
	}
	return comment
}

func spaceIDPtr(id SpaceID) *SpaceID {
	return &id
}
