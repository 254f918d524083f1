package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
	"github.com/F3Joule/subsocial-v2/internal/social"
)

const (
	extensionRegular = "regular_post"
	extensionComment = "comment"
	extensionShared  = "shared_post"
)

// AccountRecord stores a social account together with its optional profile.
type AccountRecord struct {
	AccountID              string  `gorm:"column:account_id;primaryKey;size:190;not null"`
	FollowersCount         uint32  `gorm:"column:followers_count;not null;default:0"`
	FollowingAccountsCount uint16  `gorm:"column:following_accounts_count;not null;default:0"`
	FollowingSpacesCount   uint16  `gorm:"column:following_spaces_count;not null;default:0"`
	Reputation             uint32  `gorm:"column:reputation;not null;default:1"`
	HasProfile             bool    `gorm:"column:has_profile;not null;default:false"`
	ProfileHandle          string  `gorm:"column:profile_handle;size:190;not null;default:''"`
	ProfileContent         string  `gorm:"column:profile_content;size:190;not null;default:''"`
	ProfileCreatedBy       string  `gorm:"column:profile_created_by;size:190;not null;default:''"`
	ProfileCreatedAtNanos  int64   `gorm:"column:profile_created_at_ns;not null;default:0"`
	ProfileUpdatedBy       *string `gorm:"column:profile_updated_by;size:190"`
	ProfileUpdatedAtNanos  *int64  `gorm:"column:profile_updated_at_ns"`
	ProfileHistoryJSON     string  `gorm:"column:profile_history_json;type:text;not null;default:'null'"`
}

// TableName provides the explicit table binding for GORM.
func (AccountRecord) TableName() string {
	return "social_accounts"
}

// SpaceRecord stores one space.
type SpaceRecord struct {
	SpaceID         uint64  `gorm:"column:space_id;primaryKey;autoIncrement:false"`
	CreatedBy       string  `gorm:"column:created_by;size:190;not null;index:idx_spaces_owner"`
	CreatedAtNanos  int64   `gorm:"column:created_at_ns;not null"`
	UpdatedBy       *string `gorm:"column:updated_by;size:190"`
	UpdatedAtNanos  *int64  `gorm:"column:updated_at_ns"`
	Handle          *string `gorm:"column:handle;size:190"`
	Content         string  `gorm:"column:content;size:190;not null;default:''"`
	WritersJSON     string  `gorm:"column:writers_json;type:text;not null;default:'null'"`
	PostsCount      uint32  `gorm:"column:posts_count;not null;default:0"`
	FollowersCount  uint32  `gorm:"column:followers_count;not null;default:0"`
	Score           int32   `gorm:"column:score;not null;default:0"`
	EditHistoryJSON string  `gorm:"column:edit_history_json;type:text;not null;default:'null'"`
}

// TableName provides the explicit table binding for GORM.
func (SpaceRecord) TableName() string {
	return "spaces"
}

// PostRecord stores a post, comment or share. Extension holds the role and the
// related post columns are filled according to it.
type PostRecord struct {
	PostID            uint64  `gorm:"column:post_id;primaryKey;autoIncrement:false"`
	CreatedBy         string  `gorm:"column:created_by;size:190;not null"`
	CreatedAtNanos    int64   `gorm:"column:created_at_ns;not null"`
	UpdatedBy         *string `gorm:"column:updated_by;size:190"`
	UpdatedAtNanos    *int64  `gorm:"column:updated_at_ns"`
	SpaceID           *uint64 `gorm:"column:space_id;index:idx_posts_space"`
	Extension         string  `gorm:"column:extension;size:32;not null"`
	ParentPostID      *uint64 `gorm:"column:parent_post_id"`
	RootPostID        uint64  `gorm:"column:root_post_id;not null;default:0"`
	OriginalPostID    uint64  `gorm:"column:original_post_id;not null;default:0"`
	Content           string  `gorm:"column:content;size:190;not null;default:''"`
	EditHistoryJSON   string  `gorm:"column:edit_history_json;type:text;not null;default:'null'"`
	TotalRepliesCount uint32  `gorm:"column:total_replies_count;not null;default:0"`
	SharesCount       uint32  `gorm:"column:shares_count;not null;default:0"`
	UpvotesCount      uint32  `gorm:"column:upvotes_count;not null;default:0"`
	DownvotesCount    uint32  `gorm:"column:downvotes_count;not null;default:0"`
	Score             int32   `gorm:"column:score;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (PostRecord) TableName() string {
	return "posts"
}

// ReactionRecord stores one vote.
type ReactionRecord struct {
	ReactionID     uint64  `gorm:"column:reaction_id;primaryKey;autoIncrement:false"`
	PostID         uint64  `gorm:"column:post_id;not null;index:idx_reactions_post"`
	CreatedBy      string  `gorm:"column:created_by;size:190;not null"`
	CreatedAtNanos int64   `gorm:"column:created_at_ns;not null"`
	UpdatedBy      *string `gorm:"column:updated_by;size:190"`
	UpdatedAtNanos *int64  `gorm:"column:updated_at_ns"`
	Kind           uint8   `gorm:"column:kind;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ReactionRecord) TableName() string {
	return "post_reactions"
}

type AccountFollowRecord struct {
	FollowerID string `gorm:"column:follower_id;primaryKey;size:190;not null"`
	TargetID   string `gorm:"column:target_id;primaryKey;size:190;not null"`
	Sequence   uint64 `gorm:"column:sequence;not null"`
}

// TableName provides the explicit table binding for GORM.
func (AccountFollowRecord) TableName() string {
	return "account_follows"
}

type SpaceFollowRecord struct {
	FollowerID string `gorm:"column:follower_id;primaryKey;size:190;not null"`
	SpaceID    uint64 `gorm:"column:space_id;primaryKey;autoIncrement:false"`
	Sequence   uint64 `gorm:"column:sequence;not null"`
}

// TableName provides the explicit table binding for GORM.
func (SpaceFollowRecord) TableName() string {
	return "space_follows"
}

type PostScoreRecord struct {
	AccountID string `gorm:"column:account_id;primaryKey;size:190;not null"`
	PostID    uint64 `gorm:"column:post_id;primaryKey;autoIncrement:false"`
	Action    string `gorm:"column:action;primaryKey;size:32;not null"`
	Diff      int16  `gorm:"column:diff;not null"`
}

// TableName provides the explicit table binding for GORM.
func (PostScoreRecord) TableName() string {
	return "post_scores"
}

type SpaceScoreRecord struct {
	AccountID string `gorm:"column:account_id;primaryKey;size:190;not null"`
	SpaceID   uint64 `gorm:"column:space_id;primaryKey;autoIncrement:false"`
	Action    string `gorm:"column:action;primaryKey;size:32;not null"`
	Diff      int16  `gorm:"column:diff;not null"`
}

// TableName provides the explicit table binding for GORM.
func (SpaceScoreRecord) TableName() string {
	return "space_scores"
}

type ReputationRecord struct {
	TargetID string `gorm:"column:target_id;primaryKey;size:190;not null"`
	ActorID  string `gorm:"column:actor_id;primaryKey;size:190;not null"`
	Action   string `gorm:"column:action;primaryKey;size:32;not null"`
	Applied  int32  `gorm:"column:applied;not null"`
	Count    uint32 `gorm:"column:count;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ReputationRecord) TableName() string {
	return "reputation_entries"
}

type ShareCountRecord struct {
	AccountID string `gorm:"column:account_id;primaryKey;size:190;not null"`
	PostID    uint64 `gorm:"column:post_id;primaryKey;autoIncrement:false"`
	Count     uint16 `gorm:"column:count;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ShareCountRecord) TableName() string {
	return "post_shares"
}

// CounterRecord is the single row holding the id allocators.
type CounterRecord struct {
	ID             uint8  `gorm:"column:id;primaryKey;autoIncrement:false"`
	NextSpaceID    uint64 `gorm:"column:next_space_id;not null;default:1"`
	NextPostID     uint64 `gorm:"column:next_post_id;not null;default:1"`
	NextReactionID uint64 `gorm:"column:next_reaction_id;not null;default:1"`
	FollowSequence uint64 `gorm:"column:follow_sequence;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (CounterRecord) TableName() string {
	return "ledger_counters"
}

// ApplyRun records one persisted script application.
type ApplyRun struct {
	RunID           string `gorm:"column:run_id;primaryKey;size:64;not null"`
	Script          string `gorm:"column:script;size:512;not null;default:''"`
	StartedAtNanos  int64  `gorm:"column:started_at_ns;not null"`
	FinishedAtNanos int64  `gorm:"column:finished_at_ns;not null"`
	Operations      int    `gorm:"column:operations;not null;default:0"`
	Failures        int    `gorm:"column:failures;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (ApplyRun) TableName() string {
	return "apply_runs"
}

func snapshotModels() []any {
	return []any{
		&AccountRecord{},
		&SpaceRecord{},
		&PostRecord{},
		&ReactionRecord{},
		&AccountFollowRecord{},
		&SpaceFollowRecord{},
		&PostScoreRecord{},
		&SpaceScoreRecord{},
		&ReputationRecord{},
		&ShareCountRecord{},
		&CounterRecord{},
	}
}

func toNanos(at time.Time) int64 {
	return at.UTC().UnixNano()
}

func fromNanos(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

func splitStamp(stamp *social.WhoAndWhen) (*string, *int64) {
	if stamp == nil {
		return nil, nil
	}
	account := string(stamp.Account)
	at := toNanos(stamp.At)
	return &account, &at
}

func joinStamp(account *string, at *int64) *social.WhoAndWhen {
	if account == nil || at == nil {
		return nil
	}
	return &social.WhoAndWhen{Account: social.AccountID(*account), At: fromNanos(*at)}
}

func encodeJSON(value any) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeJSON[T any](raw string) (T, error) {
	var value T
	if raw == "" {
		return value, nil
	}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return value, err
	}
	return value, nil
}

func newAccountRecord(account social.SocialAccount, history []social.ProfileHistoryEntry) (AccountRecord, error) {
	record := AccountRecord{
		AccountID:              string(account.ID),
		FollowersCount:         account.FollowersCount,
		FollowingAccountsCount: account.FollowingAccountsCount,
		FollowingSpacesCount:   account.FollowingSpacesCount,
		Reputation:             account.Reputation,
		ProfileHistoryJSON:     "null",
	}
	if account.Profile != nil {
		record.HasProfile = true
		record.ProfileHandle = account.Profile.Handle
		record.ProfileContent = account.Profile.Content
		record.ProfileCreatedBy = string(account.Profile.Created.Account)
		record.ProfileCreatedAtNanos = toNanos(account.Profile.Created.At)
		record.ProfileUpdatedBy, record.ProfileUpdatedAtNanos = splitStamp(account.Profile.Updated)
	}
	if len(history) > 0 {
		encoded, err := encodeJSON(history)
		if err != nil {
			return AccountRecord{}, err
		}
		record.ProfileHistoryJSON = encoded
	}
	return record, nil
}

func (r AccountRecord) toDomain() (social.SocialAccount, []social.ProfileHistoryEntry, error) {
	account := social.SocialAccount{
		ID:                     social.AccountID(r.AccountID),
		FollowersCount:         r.FollowersCount,
		FollowingAccountsCount: r.FollowingAccountsCount,
		FollowingSpacesCount:   r.FollowingSpacesCount,
		Reputation:             r.Reputation,
	}
	if r.HasProfile {
		account.Profile = &social.Profile{
			Created: social.WhoAndWhen{Account: social.AccountID(r.ProfileCreatedBy), At: fromNanos(r.ProfileCreatedAtNanos)},
			Updated: joinStamp(r.ProfileUpdatedBy, r.ProfileUpdatedAtNanos),
			Handle:  r.ProfileHandle,
			Content: r.ProfileContent,
		}
	}
	history, err := decodeJSON[[]social.ProfileHistoryEntry](r.ProfileHistoryJSON)
	if err != nil {
		return social.SocialAccount{}, nil, fmt.Errorf("account %s history: %w", r.AccountID, err)
	}
	return account, history, nil
}

func newSpaceRecord(space social.Space) (SpaceRecord, error) {
	writers, err := encodeJSON(space.Writers)
	if err != nil {
		return SpaceRecord{}, err
	}
	history, err := encodeJSON(space.EditHistory)
	if err != nil {
		return SpaceRecord{}, err
	}
	record := SpaceRecord{
		SpaceID:         uint64(space.ID),
		CreatedBy:       string(space.Created.Account),
		CreatedAtNanos:  toNanos(space.Created.At),
		Handle:          space.Handle,
		Content:         space.Content,
		WritersJSON:     writers,
		PostsCount:      space.PostsCount,
		FollowersCount:  space.FollowersCount,
		Score:           space.Score,
		EditHistoryJSON: history,
	}
	record.UpdatedBy, record.UpdatedAtNanos = splitStamp(space.Updated)
	return record, nil
}

func (r SpaceRecord) toDomain() (social.Space, error) {
	writers, err := decodeJSON[[]social.AccountID](r.WritersJSON)
	if err != nil {
		return social.Space{}, fmt.Errorf("space %d writers: %w", r.SpaceID, err)
	}
	history, err := decodeJSON[[]social.SpaceHistoryEntry](r.EditHistoryJSON)
	if err != nil {
		return social.Space{}, fmt.Errorf("space %d history: %w", r.SpaceID, err)
	}
	return social.Space{
		ID:             social.SpaceID(r.SpaceID),
		Created:        social.WhoAndWhen{Account: social.AccountID(r.CreatedBy), At: fromNanos(r.CreatedAtNanos)},
		Updated:        joinStamp(r.UpdatedBy, r.UpdatedAtNanos),
		Handle:         r.Handle,
		Content:        r.Content,
		Writers:        writers,
		PostsCount:     r.PostsCount,
		FollowersCount: r.FollowersCount,
		Score:          r.Score,
		EditHistory:    history,
	}, nil
}

func newPostRecord(post social.Post) (PostRecord, error) {
	history, err := encodeJSON(post.EditHistory)
	if err != nil {
		return PostRecord{}, err
	}
	record := PostRecord{
		PostID:            uint64(post.ID),
		CreatedBy:         string(post.Created.Account),
		CreatedAtNanos:    toNanos(post.Created.At),
		Extension:         extensionRegular,
		Content:           post.Content,
		EditHistoryJSON:   history,
		TotalRepliesCount: post.TotalRepliesCount,
		SharesCount:       post.SharesCount,
		UpvotesCount:      post.UpvotesCount,
		DownvotesCount:    post.DownvotesCount,
		Score:             post.Score,
	}
	record.UpdatedBy, record.UpdatedAtNanos = splitStamp(post.Updated)
	if post.SpaceID != nil {
		spaceID := uint64(*post.SpaceID)
		record.SpaceID = &spaceID
	}
	if comment, ok := post.AsComment(); ok {
		record.Extension = extensionComment
		record.RootPostID = uint64(comment.RootPostID)
		if comment.ParentID != nil {
			parentID := uint64(*comment.ParentID)
			record.ParentPostID = &parentID
		}
	}
	if shared, ok := post.AsShared(); ok {
		record.Extension = extensionShared
		record.OriginalPostID = uint64(shared.OriginalPostID)
	}
	return record, nil
}

func (r PostRecord) toDomain() (social.Post, error) {
	history, err := decodeJSON[[]social.PostHistoryEntry](r.EditHistoryJSON)
	if err != nil {
		return social.Post{}, fmt.Errorf("post %d history: %w", r.PostID, err)
	}
	post := social.Post{
		ID:                social.PostID(r.PostID),
		Created:           social.WhoAndWhen{Account: social.AccountID(r.CreatedBy), At: fromNanos(r.CreatedAtNanos)},
		Updated:           joinStamp(r.UpdatedBy, r.UpdatedAtNanos),
		Content:           r.Content,
		EditHistory:       history,
		TotalRepliesCount: r.TotalRepliesCount,
		SharesCount:       r.SharesCount,
		UpvotesCount:      r.UpvotesCount,
		DownvotesCount:    r.DownvotesCount,
		Score:             r.Score,
	}
	if r.SpaceID != nil {
		spaceID := social.SpaceID(*r.SpaceID)
		post.SpaceID = &spaceID
	}
	switch r.Extension {
	case extensionRegular:
		post.Extension = social.RegularPost{}
	case extensionComment:
		comment := social.Comment{RootPostID: social.PostID(r.RootPostID)}
		if r.ParentPostID != nil {
			parentID := social.PostID(*r.ParentPostID)
			comment.ParentID = &parentID
		}
		post.Extension = comment
	case extensionShared:
		post.Extension = social.SharedPost{OriginalPostID: social.PostID(r.OriginalPostID)}
	default:
		return social.Post{}, fmt.Errorf("post %d: %w: %s", r.PostID, social.ErrInvalidPostExtension, r.Extension)
	}
	return post, nil
}

func newReactionRecord(reaction social.Reaction) ReactionRecord {
	record := ReactionRecord{
		ReactionID:     uint64(reaction.ID),
		PostID:         uint64(reaction.PostID),
		CreatedBy:      string(reaction.Created.Account),
		CreatedAtNanos: toNanos(reaction.Created.At),
		Kind:           uint8(reaction.Kind),
	}
	record.UpdatedBy, record.UpdatedAtNanos = splitStamp(reaction.Updated)
	return record
}

func (r ReactionRecord) toDomain() social.Reaction {
	return social.Reaction{
		ID:      social.ReactionID(r.ReactionID),
		PostID:  social.PostID(r.PostID),
		Created: social.WhoAndWhen{Account: social.AccountID(r.CreatedBy), At: fromNanos(r.CreatedAtNanos)},
		Updated: joinStamp(r.UpdatedBy, r.UpdatedAtNanos),
		Kind:    social.ReactionKind(r.Kind),
	}
}

func parseAction(raw string) (scoring.Action, error) {
	action, err := scoring.ParseAction(raw)
	if err != nil {
		return 0, fmt.Errorf("stored action: %w", err)
	}
	return action, nil
}
