package social

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// AccountID is an already-authenticated account identifier.
type AccountID string

type SpaceID uint64

type PostID uint64

type ReactionID uint64

// WhoAndWhen stamps a creation or an edit.
type WhoAndWhen struct {
	Account AccountID `yaml:"account"`
	At      time.Time `yaml:"at"`
}

// SocialAccount is created lazily on first reference and never deleted.
type SocialAccount struct {
	ID                     AccountID `yaml:"id"`
	FollowersCount         uint32    `yaml:"followers_count"`
	FollowingAccountsCount uint16    `yaml:"following_accounts_count"`
	FollowingSpacesCount   uint16    `yaml:"following_spaces_count"`
	Reputation             uint32    `yaml:"reputation"`
	Profile                *Profile  `yaml:"profile,omitempty"`
}

type Profile struct {
	Created WhoAndWhen  `yaml:"created"`
	Updated *WhoAndWhen `yaml:"updated,omitempty"`
	Handle  string      `yaml:"handle"`
	Content string      `yaml:"content"`
}

// ProfileUpdate carries optional new values. A nil field is left untouched.
type ProfileUpdate struct {
	Handle  *string `yaml:"handle,omitempty"`
	Content *string `yaml:"content,omitempty"`
}

func (u ProfileUpdate) isEmpty() bool {
	return u.Handle == nil && u.Content == nil
}

type ProfileHistoryEntry struct {
	Edited WhoAndWhen    `yaml:"edited"`
	Old    ProfileUpdate `yaml:"old"`
}

type Space struct {
	ID             SpaceID             `yaml:"id"`
	Created        WhoAndWhen          `yaml:"created"`
	Updated        *WhoAndWhen         `yaml:"updated,omitempty"`
	Handle         *string             `yaml:"handle,omitempty"`
	Content        string              `yaml:"content"`
	Writers        []AccountID         `yaml:"writers,omitempty"`
	PostsCount     uint32              `yaml:"posts_count"`
	FollowersCount uint32              `yaml:"followers_count"`
	Score          int32               `yaml:"score"`
	EditHistory    []SpaceHistoryEntry `yaml:"edit_history,omitempty"`
}

// Owner returns the account that created the space.
func (s Space) Owner() AccountID {
	return s.Created.Account
}

// SpaceUpdate carries optional new values. An empty Handle removes the handle.
type SpaceUpdate struct {
	Writers *[]AccountID `yaml:"writers,omitempty"`
	Handle  *string      `yaml:"handle,omitempty"`
	Content *string      `yaml:"content,omitempty"`
}

func (u SpaceUpdate) isEmpty() bool {
	return u.Writers == nil && u.Handle == nil && u.Content == nil
}

type SpaceHistoryEntry struct {
	Edited WhoAndWhen  `yaml:"edited"`
	Old    SpaceUpdate `yaml:"old"`
}

// PostExtension is the closed set of post roles: RegularPost, Comment and SharedPost.
type PostExtension interface {
	extensionName() string
}

type RegularPost struct{}

// Comment places a post under RootPostID, optionally replying to ParentID.
type Comment struct {
	ParentID   *PostID `yaml:"parent_id,omitempty"`
	RootPostID PostID  `yaml:"root_post_id"`
}

type SharedPost struct {
	OriginalPostID PostID `yaml:"original_post_id"`
}

func (RegularPost) extensionName() string { return "regular_post" }
func (Comment) extensionName() string     { return "comment" }
func (SharedPost) extensionName() string  { return "shared_post" }

// ExtensionName returns the snake_case name of a post extension.
func ExtensionName(extension PostExtension) string {
	if extension == nil {
		return RegularPost{}.extensionName()
	}
	return extension.extensionName()
}

type Post struct {
	ID                PostID             `yaml:"id"`
	Created           WhoAndWhen         `yaml:"created"`
	Updated           *WhoAndWhen        `yaml:"updated,omitempty"`
	SpaceID           *SpaceID           `yaml:"space_id,omitempty"`
	Extension         PostExtension      `yaml:"extension"`
	Content           string             `yaml:"content"`
	EditHistory       []PostHistoryEntry `yaml:"edit_history,omitempty"`
	TotalRepliesCount uint32             `yaml:"total_replies_count"`
	SharesCount       uint32             `yaml:"shares_count"`
	UpvotesCount      uint32             `yaml:"upvotes_count"`
	DownvotesCount    uint32             `yaml:"downvotes_count"`
	Score             int32              `yaml:"score"`
}

// Creator returns the account that created the post.
func (p Post) Creator() AccountID {
	return p.Created.Account
}

// AsComment returns the comment extension when the post is a comment.
func (p Post) AsComment() (Comment, bool) {
	comment, ok := p.Extension.(Comment)
	return comment, ok
}

// AsShared returns the shared-post extension when the post is a share.
func (p Post) AsShared() (SharedPost, bool) {
	shared, ok := p.Extension.(SharedPost)
	return shared, ok
}

func (p Post) IsComment() bool {
	_, ok := p.Extension.(Comment)
	return ok
}

// PostUpdate carries optional new values. Comments may only change content.
type PostUpdate struct {
	SpaceID *SpaceID `yaml:"space_id,omitempty"`
	Content *string  `yaml:"content,omitempty"`
}

func (u PostUpdate) isEmpty() bool {
	return u.SpaceID == nil && u.Content == nil
}

type PostHistoryEntry struct {
	Edited WhoAndWhen `yaml:"edited"`
	Old    PostUpdate `yaml:"old"`
}

type ReactionKind uint8

const (
	Upvote ReactionKind = iota + 1
	Downvote
)

func (k ReactionKind) String() string {
	switch k {
	case Upvote:
		return "upvote"
	case Downvote:
		return "downvote"
	default:
		return fmt.Sprintf("reaction(%d)", uint8(k))
	}
}

// ParseReactionKind accepts "upvote" or "downvote", case-insensitively.
func ParseReactionKind(raw string) (ReactionKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "upvote":
		return Upvote, nil
	case "downvote":
		return Downvote, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidReactionKind, raw)
	}
}

func (k ReactionKind) valid() bool {
	return k == Upvote || k == Downvote
}

type Reaction struct {
	ID      ReactionID   `yaml:"id"`
	PostID  PostID       `yaml:"post_id"`
	Created WhoAndWhen   `yaml:"created"`
	Updated *WhoAndWhen  `yaml:"updated,omitempty"`
	Kind    ReactionKind `yaml:"kind"`
}

func (r Reaction) Owner() AccountID {
	return r.Created.Account
}

func cloneProfile(profile *Profile) *Profile {
	if profile == nil {
		return nil
	}
	copied := *profile
	return &copied
}

func cloneSpace(space Space) Space {
	space.Writers = slices.Clone(space.Writers)
	space.EditHistory = slices.Clone(space.EditHistory)
	return space
}

func clonePost(post Post) Post {
	post.EditHistory = slices.Clone(post.EditHistory)
	return post
}

func stringPtr(value string) *string {
	return &value
}

// MarshalYAML renders the kind by name.
func (k ReactionKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}
