package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationSeedLedgerCounters = "2026-09-02_seed_ledger_counters"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationSeedLedgerCounters, apply: seedLedgerCounters},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// seedLedgerCounters creates the counters row for databases written before the
// id allocators were persisted, deriving each allocator from the stored rows.
func seedLedgerCounters(db *gorm.DB) error {
	var existing int64
	if err := db.Model(&CounterRecord{}).Where("id = ?", counterRowID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	nextID := func(model any, column string) (uint64, error) {
		var highest uint64
		err := db.Model(model).Select("COALESCE(MAX(" + column + "), 0)").Scan(&highest).Error
		return highest + 1, err
	}

	nextSpace, err := nextID(&SpaceRecord{}, "space_id")
	if err != nil {
		return err
	}
	nextPost, err := nextID(&PostRecord{}, "post_id")
	if err != nil {
		return err
	}
	nextReaction, err := nextID(&ReactionRecord{}, "reaction_id")
	if err != nil {
		return err
	}
	var highestAccountFollow, highestSpaceFollow uint64
	if err := db.Model(&AccountFollowRecord{}).Select("COALESCE(MAX(sequence), 0)").Scan(&highestAccountFollow).Error; err != nil {
		return err
	}
	if err := db.Model(&SpaceFollowRecord{}).Select("COALESCE(MAX(sequence), 0)").Scan(&highestSpaceFollow).Error; err != nil {
		return err
	}

	return db.Create(&CounterRecord{
		ID:             counterRowID,
		NextSpaceID:    nextSpace,
		NextPostID:     nextPost,
		NextReactionID: nextReaction,
		FollowSequence: max(highestAccountFollow, highestSpaceFollow),
	}).Error
}
