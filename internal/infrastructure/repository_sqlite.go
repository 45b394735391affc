package infrastructure

import (
	"errors"
	"fmt"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/salvatorelai/ocd/internal/domain"
)

// SQLiteProgressRepository implements domain.ProgressRepository with one
// SQLite database per course archive. SQLite's transactional commit is the
// atomic write the store contract requires: a reader never observes a
// partially applied transition, including across a process crash.
type SQLiteProgressRepository struct {
	db *gorm.DB
}

// StateDBPath returns the progress database location for a course id.
func StateDBPath(stateDir, courseID string) string {
	return filepath.Join(stateDir, "course-"+courseID+".db")
}

// NewSQLiteProgressRepository opens (or creates) the progress store at
// dbPath. A store that exists but cannot be opened or migrated is reported
// as domain.ErrCorruptState; the caller decides whether to discard it.
func NewSQLiteProgressRepository(dbPath string) (*SQLiteProgressRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}

	// AutoMigrate tolerates columns written by newer versions, which keeps
	// old stores forward-readable.
	if err := db.AutoMigrate(&domain.AssetProgress{}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}

	return &SQLiteProgressRepository{db: db}, nil
}

// Get returns the stored progress for an asset, or a fresh Pending record
// when the asset has never been seen.
func (r *SQLiteProgressRepository) Get(assetID string) (*domain.AssetProgress, error) {
	var progress domain.AssetProgress
	err := r.db.First(&progress, "asset_id = ?", assetID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewAssetProgress(assetID), nil
		}
		return nil, err
	}
	return &progress, nil
}

// Transition atomically validates and applies a state change. The read,
// validation and write happen inside one transaction so concurrent workers
// can never interleave updates to the same asset.
func (r *SQLiteProgressRepository) Transition(assetID string, to domain.AssetState, meta domain.TransitionMeta) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var progress domain.AssetProgress
		existing := true

		err := tx.First(&progress, "asset_id = ?", assetID).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			progress = *domain.NewAssetProgress(assetID)
			existing = false
		}

		if !domain.CanTransition(progress.State, to) {
			return &domain.InvalidTransitionError{
				AssetID: assetID,
				From:    progress.State,
				To:      to,
			}
		}

		progress.Apply(to, meta)

		if existing {
			return tx.Save(&progress).Error
		}
		return tx.Create(&progress).Error
	})
}

// Snapshot returns a copy of every stored progress record keyed by asset id.
func (r *SQLiteProgressRepository) Snapshot() (map[string]domain.AssetProgress, error) {
	var records []domain.AssetProgress
	if err := r.db.Find(&records).Error; err != nil {
		return nil, err
	}

	view := make(map[string]domain.AssetProgress, len(records))
	for _, rec := range records {
		view[rec.AssetID] = rec
	}
	return view, nil
}

// Stats returns aggregate counts by state.
func (r *SQLiteProgressRepository) Stats() (*domain.ArchiveStats, error) {
	stats := &domain.ArchiveStats{}

	if err := r.db.Model(&domain.AssetProgress{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var stateCounts []struct {
		State domain.AssetState
		Count int64
	}
	if err := r.db.Model(&domain.AssetProgress{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&stateCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range stateCounts {
		switch sc.State {
		case domain.StatePending, domain.StateStructureKnown:
			stats.Pending += sc.Count
		case domain.StateDownloading:
			stats.Downloading = sc.Count
		case domain.StateTranscriptDone:
			stats.TranscriptDone = sc.Count
		case domain.StateVideoDone:
			stats.VideoDone = sc.Count
		case domain.StateComplete:
			stats.Complete = sc.Count
		case domain.StateFailed:
			stats.Failed = sc.Count
		}
	}

	if err := r.db.Model(&domain.AssetProgress{}).
		Where("transcript_missing = ?", true).
		Count(&stats.TranscriptMissing).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteProgressRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
