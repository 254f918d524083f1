// Package scoring holds the reputation-weighted score arithmetic shared by every
// scored action. It is pure: no state, no clock, no storage.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// Action identifies a scored activity.
type Action uint8

const (
	FollowSpace Action = iota + 1
	FollowAccount
	UpvotePost
	DownvotePost
	SharePost
	CreateComment
	UpvoteComment
	DownvoteComment
	ShareComment
)

var ErrUnknownAction = errors.New("scoring: unknown action")

var actionNames = map[Action]string{
	FollowSpace:     "follow_space",
	FollowAccount:   "follow_account",
	UpvotePost:      "upvote_post",
	DownvotePost:    "downvote_post",
	SharePost:       "share_post",
	CreateComment:   "create_comment",
	UpvoteComment:   "upvote_comment",
	DownvoteComment: "downvote_comment",
	ShareComment:    "share_comment",
}

// Actions lists every action in declaration order.
func Actions() []Action {
	return []Action{
		FollowSpace, FollowAccount, UpvotePost, DownvotePost, SharePost,
		CreateComment, UpvoteComment, DownvoteComment, ShareComment,
	}
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// ParseAction accepts the snake_case name of an action, case-insensitively.
func ParseAction(raw string) (Action, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for action, name := range actionNames {
		if name == normalized {
			return action, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}

// Weights maps each action to its signed base weight.
type Weights struct {
	FollowSpace     int16
	FollowAccount   int16
	UpvotePost      int16
	DownvotePost    int16
	SharePost       int16
	CreateComment   int16
	UpvoteComment   int16
	DownvoteComment int16
	ShareComment    int16
}

// DefaultWeights returns the stock base weights.
func DefaultWeights() Weights {
	return Weights{
		FollowSpace:     7,
		FollowAccount:   3,
		UpvotePost:      5,
		DownvotePost:    -3,
		SharePost:       5,
		CreateComment:   5,
		UpvoteComment:   4,
		DownvoteComment: -2,
		ShareComment:    3,
	}
}

// Weight returns the base weight of action, or zero for an unknown action.
func (w Weights) Weight(action Action) int16 {
	switch action {
	case FollowSpace:
		return w.FollowSpace
	case FollowAccount:
		return w.FollowAccount
	case UpvotePost:
		return w.UpvotePost
	case DownvotePost:
		return w.DownvotePost
	case SharePost:
		return w.SharePost
	case CreateComment:
		return w.CreateComment
	case UpvoteComment:
		return w.UpvoteComment
	case DownvoteComment:
		return w.DownvoteComment
	case ShareComment:
		return w.ShareComment
	default:
		return 0
	}
}

// Factor is floor(log2(max(magnitude, 1))) + 1.
func Factor(magnitude uint32) int32 {
	if magnitude == 0 {
		magnitude = 1
	}
	return int32(bits.Len32(magnitude))
}

// ScoreDiff scales the base weight of action by the factor of magnitude,
// where magnitude is the reputation of the account owning the scored content.
func (w Weights) ScoreDiff(magnitude uint32, action Action) int16 {
	return clampInt16(int32(w.Weight(action)) * Factor(magnitude))
}

func clampInt16(value int32) int16 {
	if value > math.MaxInt16 {
		return math.MaxInt16
	}
	if value < math.MinInt16 {
		return math.MinInt16
	}
	return int16(value)
}
