package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/F3Joule/subsocial-v2/internal/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opStoreNew     = "database.snapshot_store.new"
	opSaveSnapshot = "database.save_snapshot"
	opLoadSnapshot = "database.load_snapshot"
	opListRuns     = "database.list_runs"

	counterRowID = 1
	batchSize    = 200
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingRunID    = errors.New("apply run id is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries a stable "<operation>.<reason>" code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type StoreConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// SnapshotStore persists complete ledger snapshots. Every save replaces the
// stored state wholesale and appends an apply run, inside one transaction.
type SnapshotStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSnapshotStore(cfg StoreConfig) (*SnapshotStore, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opStoreNew, "missing_database", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &SnapshotStore{db: cfg.Database, logger: logger}, nil
}

// Save replaces the stored snapshot and records run.
func (s *SnapshotStore) Save(ctx context.Context, snapshot social.Snapshot, run ApplyRun) error {
	if run.RunID == "" {
		return newServiceError(opSaveSnapshot, "missing_run_id", errMissingRunID)
	}

	records, err := encodeSnapshot(snapshot)
	if err != nil {
		s.logError(opSaveSnapshot, "encode_failed", err, zap.String("run_id", run.RunID))
		return newServiceError(opSaveSnapshot, "encode_failed", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range snapshotModels() {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return newServiceError(opSaveSnapshot, "clear_failed", err)
			}
		}
		if err := insertAll(tx, records.accounts); err != nil {
			return newServiceError(opSaveSnapshot, "accounts_insert_failed", err)
		}
		if err := insertAll(tx, records.spaces); err != nil {
			return newServiceError(opSaveSnapshot, "spaces_insert_failed", err)
		}
		if err := insertAll(tx, records.posts); err != nil {
			return newServiceError(opSaveSnapshot, "posts_insert_failed", err)
		}
		if err := insertAll(tx, records.reactions); err != nil {
			return newServiceError(opSaveSnapshot, "reactions_insert_failed", err)
		}
		if err := insertAll(tx, records.accountFollows); err != nil {
			return newServiceError(opSaveSnapshot, "account_follows_insert_failed", err)
		}
		if err := insertAll(tx, records.spaceFollows); err != nil {
			return newServiceError(opSaveSnapshot, "space_follows_insert_failed", err)
		}
		if err := insertAll(tx, records.postScores); err != nil {
			return newServiceError(opSaveSnapshot, "post_scores_insert_failed", err)
		}
		if err := insertAll(tx, records.spaceScores); err != nil {
			return newServiceError(opSaveSnapshot, "space_scores_insert_failed", err)
		}
		if err := insertAll(tx, records.reputation); err != nil {
			return newServiceError(opSaveSnapshot, "reputation_insert_failed", err)
		}
		if err := insertAll(tx, records.shares); err != nil {
			return newServiceError(opSaveSnapshot, "shares_insert_failed", err)
		}
		if err := tx.Create(&records.counters).Error; err != nil {
			return newServiceError(opSaveSnapshot, "counters_insert_failed", err)
		}
		if err := tx.Create(&run).Error; err != nil {
			return newServiceError(opSaveSnapshot, "run_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		var serviceErr *ServiceError
		if !errors.As(txErr, &serviceErr) {
			txErr = newServiceError(opSaveSnapshot, "transaction_failed", txErr)
		}
		s.logError(opSaveSnapshot, "transaction_failed", txErr, zap.String("run_id", run.RunID))
		return txErr
	}

	s.logger.Info("snapshot saved",
		zap.String("run_id", run.RunID),
		zap.Int("accounts", len(snapshot.Accounts)),
		zap.Int("spaces", len(snapshot.Spaces)),
		zap.Int("posts", len(snapshot.Posts)),
		zap.Int("reactions", len(snapshot.Reactions)),
	)
	return nil
}

// Load reads the stored snapshot. An empty database yields an empty snapshot.
func (s *SnapshotStore) Load(ctx context.Context) (social.Snapshot, error) {
	db := s.db.WithContext(ctx)
	snapshot := social.Snapshot{NextSpaceID: 1, NextPostID: 1, NextReactionID: 1}

	var accounts []AccountRecord
	if err := db.Order("account_id").Find(&accounts).Error; err != nil {
		return social.Snapshot{}, s.loadError("accounts_select_failed", err)
	}
	for _, record := range accounts {
		account, history, err := record.toDomain()
		if err != nil {
			return social.Snapshot{}, s.loadError("account_decode_failed", err)
		}
		snapshot.Accounts = append(snapshot.Accounts, account)
		if len(history) > 0 {
			snapshot.ProfileHistories = append(snapshot.ProfileHistories, social.ProfileHistory{Account: account.ID, Entries: history})
		}
	}

	var spaces []SpaceRecord
	if err := db.Order("space_id").Find(&spaces).Error; err != nil {
		return social.Snapshot{}, s.loadError("spaces_select_failed", err)
	}
	for _, record := range spaces {
		space, err := record.toDomain()
		if err != nil {
			return social.Snapshot{}, s.loadError("space_decode_failed", err)
		}
		snapshot.Spaces = append(snapshot.Spaces, space)
	}

	var posts []PostRecord
	if err := db.Order("post_id").Find(&posts).Error; err != nil {
		return social.Snapshot{}, s.loadError("posts_select_failed", err)
	}
	for _, record := range posts {
		post, err := record.toDomain()
		if err != nil {
			return social.Snapshot{}, s.loadError("post_decode_failed", err)
		}
		snapshot.Posts = append(snapshot.Posts, post)
	}

	var reactions []ReactionRecord
	if err := db.Order("reaction_id").Find(&reactions).Error; err != nil {
		return social.Snapshot{}, s.loadError("reactions_select_failed", err)
	}
	for _, record := range reactions {
		snapshot.Reactions = append(snapshot.Reactions, record.toDomain())
	}

	var accountFollows []AccountFollowRecord
	if err := db.Order("sequence").Find(&accountFollows).Error; err != nil {
		return social.Snapshot{}, s.loadError("account_follows_select_failed", err)
	}
	for _, record := range accountFollows {
		snapshot.AccountFollows = append(snapshot.AccountFollows, social.AccountFollow{
			Follower: social.AccountID(record.FollowerID),
			Target:   social.AccountID(record.TargetID),
			Sequence: record.Sequence,
		})
	}

	var spaceFollows []SpaceFollowRecord
	if err := db.Order("sequence").Find(&spaceFollows).Error; err != nil {
		return social.Snapshot{}, s.loadError("space_follows_select_failed", err)
	}
	for _, record := range spaceFollows {
		snapshot.SpaceFollows = append(snapshot.SpaceFollows, social.SpaceFollow{
			Follower: social.AccountID(record.FollowerID),
			SpaceID:  social.SpaceID(record.SpaceID),
			Sequence: record.Sequence,
		})
	}

	var postScores []PostScoreRecord
	if err := db.Order("post_id").Order("account_id").Order("action").Find(&postScores).Error; err != nil {
		return social.Snapshot{}, s.loadError("post_scores_select_failed", err)
	}
	for _, record := range postScores {
		action, err := parseAction(record.Action)
		if err != nil {
			return social.Snapshot{}, s.loadError("post_score_decode_failed", err)
		}
		snapshot.PostScores = append(snapshot.PostScores, social.PostScoreRecord{
			Account: social.AccountID(record.AccountID),
			PostID:  social.PostID(record.PostID),
			Action:  action,
			Diff:    record.Diff,
		})
	}

	var spaceScores []SpaceScoreRecord
	if err := db.Order("space_id").Order("account_id").Order("action").Find(&spaceScores).Error; err != nil {
		return social.Snapshot{}, s.loadError("space_scores_select_failed", err)
	}
	for _, record := range spaceScores {
		action, err := parseAction(record.Action)
		if err != nil {
			return social.Snapshot{}, s.loadError("space_score_decode_failed", err)
		}
		snapshot.SpaceScores = append(snapshot.SpaceScores, social.SpaceScoreRecord{
			Account: social.AccountID(record.AccountID),
			SpaceID: social.SpaceID(record.SpaceID),
			Action:  action,
			Diff:    record.Diff,
		})
	}

	var reputation []ReputationRecord
	if err := db.Order("target_id").Order("actor_id").Order("action").Find(&reputation).Error; err != nil {
		return social.Snapshot{}, s.loadError("reputation_select_failed", err)
	}
	for _, record := range reputation {
		action, err := parseAction(record.Action)
		if err != nil {
			return social.Snapshot{}, s.loadError("reputation_decode_failed", err)
		}
		snapshot.Reputation = append(snapshot.Reputation, social.ReputationRecord{
			Target:  social.AccountID(record.TargetID),
			Actor:   social.AccountID(record.ActorID),
			Action:  action,
			Applied: record.Applied,
			Count:   record.Count,
		})
	}

	var shares []ShareCountRecord
	if err := db.Order("post_id").Order("account_id").Find(&shares).Error; err != nil {
		return social.Snapshot{}, s.loadError("shares_select_failed", err)
	}
	for _, record := range shares {
		snapshot.PostShares = append(snapshot.PostShares, social.ShareCount{
			Account: social.AccountID(record.AccountID),
			PostID:  social.PostID(record.PostID),
			Count:   record.Count,
		})
	}

	var counters CounterRecord
	err := db.Where("id = ?", counterRowID).Take(&counters).Error
	switch {
	case err == nil:
		snapshot.NextSpaceID = social.SpaceID(counters.NextSpaceID)
		snapshot.NextPostID = social.PostID(counters.NextPostID)
		snapshot.NextReactionID = social.ReactionID(counters.NextReactionID)
		snapshot.FollowSequence = counters.FollowSequence
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return social.Snapshot{}, s.loadError("counters_select_failed", err)
	}

	return snapshot, nil
}

// LoadLedger restores a ledger from the stored snapshot.
func (s *SnapshotStore) LoadLedger(ctx context.Context, cfg social.Config) (*social.Ledger, error) {
	snapshot, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := social.Restore(cfg, snapshot)
	if err != nil {
		return nil, s.loadError("restore_failed", err)
	}
	return ledger, nil
}

// ListRuns returns the most recent apply runs, newest first.
func (s *SnapshotStore) ListRuns(ctx context.Context, limit int) ([]ApplyRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []ApplyRun
	err := s.db.WithContext(ctx).
		Order("started_at_ns DESC").
		Order("run_id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		s.logError(opListRuns, "runs_select_failed", err)
		return nil, newServiceError(opListRuns, "runs_select_failed", err)
	}
	return runs, nil
}

func (s *SnapshotStore) loadError(reason string, err error) error {
	s.logError(opLoadSnapshot, reason, err)
	return newServiceError(opLoadSnapshot, reason, err)
}

func (s *SnapshotStore) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("snapshot store error", attrs...)
}

func insertAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

type snapshotRecords struct {
	accounts       []AccountRecord
	spaces         []SpaceRecord
	posts          []PostRecord
	reactions      []ReactionRecord
	accountFollows []AccountFollowRecord
	spaceFollows   []SpaceFollowRecord
	postScores     []PostScoreRecord
	spaceScores    []SpaceScoreRecord
	reputation     []ReputationRecord
	shares         []ShareCountRecord
	counters       CounterRecord
}

func encodeSnapshot(snapshot social.Snapshot) (snapshotRecords, error) {
	histories := make(map[social.AccountID][]social.ProfileHistoryEntry, len(snapshot.ProfileHistories))
	for _, history := range snapshot.ProfileHistories {
		histories[history.Account] = history.Entries
	}

	records := snapshotRecords{
		counters: CounterRecord{
			ID:             counterRowID,
			NextSpaceID:    uint64(snapshot.NextSpaceID),
			NextPostID:     uint64(snapshot.NextPostID),
			NextReactionID: uint64(snapshot.NextReactionID),
			FollowSequence: snapshot.FollowSequence,
		},
	}
	for _, account := range snapshot.Accounts {
		record, err := newAccountRecord(account, histories[account.ID])
		if err != nil {
			return snapshotRecords{}, fmt.Errorf("account %s: %w", account.ID, err)
		}
		records.accounts = append(records.accounts, record)
	}
	for _, space := range snapshot.Spaces {
		record, err := newSpaceRecord(space)
		if err != nil {
			return snapshotRecords{}, fmt.Errorf("space %d: %w", space.ID, err)
		}
		records.spaces = append(records.spaces, record)
	}
	for _, post := range snapshot.Posts {
		record, err := newPostRecord(post)
		if err != nil {
			return snapshotRecords{}, fmt.Errorf("post %d: %w", post.ID, err)
		}
		records.posts = append(records.posts, record)
	}
	for _, reaction := range snapshot.Reactions {
		records.reactions = append(records.reactions, newReactionRecord(reaction))
	}
	for _, follow := range snapshot.AccountFollows {
		records.accountFollows = append(records.accountFollows, AccountFollowRecord{
			FollowerID: string(follow.Follower),
			TargetID:   string(follow.Target),
			Sequence:   follow.Sequence,
		})
	}
	for _, follow := range snapshot.SpaceFollows {
		records.spaceFollows = append(records.spaceFollows, SpaceFollowRecord{
			FollowerID: string(follow.Follower),
			SpaceID:    uint64(follow.SpaceID),
			Sequence:   follow.Sequence,
		})
	}
	for _, score := range snapshot.PostScores {
		records.postScores = append(records.postScores, PostScoreRecord{
			AccountID: string(score.Account),
			PostID:    uint64(score.PostID),
			Action:    score.Action.String(),
			Diff:      score.Diff,
		})
	}
	for _, score := range snapshot.SpaceScores {
		records.spaceScores = append(records.spaceScores, SpaceScoreRecord{
			AccountID: string(score.Account),
			SpaceID:   uint64(score.SpaceID),
			Action:    score.Action.String(),
			Diff:      score.Diff,
		})
	}
	for _, entry := range snapshot.Reputation {
		records.reputation = append(records.reputation, ReputationRecord{
			TargetID: string(entry.Target),
			ActorID:  string(entry.Actor),
			Action:   entry.Action.String(),
			Applied:  entry.Applied,
			Count:    entry.Count,
		})
	}
	for _, share := range snapshot.PostShares {
		records.shares = append(records.shares, ShareCountRecord{
			AccountID: string(share.Account),
			PostID:    uint64(share.PostID),
			Count:     share.Count,
		})
	}
	return records, nil
}
