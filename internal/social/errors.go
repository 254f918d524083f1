package social

import (
	"errors"

	"github.com/F3Joule/subsocial-v2/internal/validation"
)

// ErrorKind classifies ledger failures. None of them are transient.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindConflict
	KindFormat
	KindNotFound
	KindForbidden
	KindNoop
	KindState
)

func (k ErrorKind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindFormat:
		return "format"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindNoop:
		return "noop"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

type ledgerError struct {
	kind    ErrorKind
	message string
}

func (e *ledgerError) Error() string {
	return e.message
}

func newLedgerError(kind ErrorKind, message string) error {
	return &ledgerError{kind: kind, message: message}
}

var (
	ErrHandleNotUnique = newLedgerError(KindConflict, "social: handle is not unique")

	ErrMissingAccountID     = newLedgerError(KindFormat, "social: account id is required")
	ErrInvalidReactionKind  = newLedgerError(KindFormat, "social: invalid reaction kind")
	ErrSharedPostHasContent = newLedgerError(KindFormat, "social: shared post must not carry content")
	ErrInvalidPostExtension = newLedgerError(KindFormat, "social: invalid post extension")

	ErrSocialAccountNotFound = newLedgerError(KindNotFound, "social: social account not found")
	ErrProfileNotFound       = newLedgerError(KindNotFound, "social: profile does not exist")
	ErrSpaceNotFound         = newLedgerError(KindNotFound, "social: space not found")
	ErrPostNotFound          = newLedgerError(KindNotFound, "social: post not found")
	ErrUnknownParentComment  = newLedgerError(KindNotFound, "social: unknown parent comment")
	ErrOriginalPostNotFound  = newLedgerError(KindNotFound, "social: original post not found")
	ErrReactionNotFound      = newLedgerError(KindNotFound, "social: reaction not found")

	ErrNotSpaceOwner    = newLedgerError(KindForbidden, "social: account is not the space owner")
	ErrNotPostAuthor    = newLedgerError(KindForbidden, "social: account is not the post author")
	ErrNotReactionOwner = newLedgerError(KindForbidden, "social: account is not the reaction owner")

	ErrNoUpdatesInProfile      = newLedgerError(KindNoop, "social: nothing to update in profile")
	ErrNoUpdatesInSpace        = newLedgerError(KindNoop, "social: nothing to update in space")
	ErrNoUpdatesInPost         = newLedgerError(KindNoop, "social: nothing to update in post")
	ErrCommentContentNotDiffer = newLedgerError(KindNoop, "social: new comment content is the same as the old one")
	ErrSameReaction            = newLedgerError(KindNoop, "social: new reaction kind is the same as the old one")

	ErrProfileAlreadyExists    = newLedgerError(KindState, "social: account already has a profile")
	ErrCannotFollowSelf        = newLedgerError(KindState, "social: account cannot follow itself")
	ErrCannotUnfollowSelf      = newLedgerError(KindState, "social: account cannot unfollow itself")
	ErrAlreadyFollowingAccount = newLedgerError(KindState, "social: account is already followed")
	ErrNotFollowingAccount     = newLedgerError(KindState, "social: account is not followed")
	ErrAlreadyFollowingSpace   = newLedgerError(KindState, "social: space is already followed")
	ErrNotFollowingSpace       = newLedgerError(KindState, "social: space is not followed")
	ErrCannotUnfollowOwnSpace  = newLedgerError(KindState, "social: owner cannot unfollow their own space")
	ErrAlreadyReacted          = newLedgerError(KindState, "social: account has already reacted to this post")
	ErrCannotShareSharedPost   = newLedgerError(KindState, "social: cannot share a shared post")
	ErrCannotMoveComment       = newLedgerError(KindState, "social: comments cannot be moved between spaces")
	ErrMaxCommentDepthReached  = newLedgerError(KindState, "social: max comment depth reached")
)

// KindOf classifies err, including the format errors raised by the validator.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var typed *ledgerError
	if errors.As(err, &typed) {
		return typed.kind
	}
	for _, formatErr := range []error{
		validation.ErrHandleTooShort,
		validation.ErrHandleTooLong,
		validation.ErrHandleInvalidChars,
		validation.ErrUsernameTooShort,
		validation.ErrUsernameTooLong,
		validation.ErrUsernameNotAlphanumeric,
		validation.ErrInvalidContent,
	} {
		if errors.Is(err, formatErr) {
			return KindFormat
		}
	}
	return KindUnknown
}
