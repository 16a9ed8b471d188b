package jobs

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/murmurlabs/verbatim/pkg/errorsx"
)

// Store persists jobs. Status updates are compare-and-swap on the previous
// status, so concurrent callback deliveries for one id resolve to exactly
// one winner.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (or creates) the sqlite database at path and migrates the
// schema.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("open job store: %w", err), errorsx.ReasonJobStore)
	}
	if err := db.AutoMigrate(&Job{}); err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("migrate job store: %w", err), errorsx.ReasonJobStore)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open gorm handle. Used by tests.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Job{}); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonJobStore)
	}
	return &Store{db: db}, nil
}

// Insert persists a new job.
func (s *Store) Insert(job *Job) error {
	if err := s.db.Create(job).Error; err != nil {
		return errorsx.Wrap(err, errorsx.ReasonJobStore)
	}
	return nil
}

// Get fetches a job by id.
func (s *Store) Get(id string) (*Job, error) {
	var job Job
	err := s.db.First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorsx.Wrap(fmt.Errorf("job %s: not found", id), errorsx.ReasonJobNotFound)
	}
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonJobStore)
	}
	return &job, nil
}

// Complete moves a processing job to Done with its raw result. Returns false
// without error when the job already left Processing (a duplicate delivery).
func (s *Store) Complete(id string, raw []byte) (bool, error) {
	return s.transition(id, map[string]any{
		"status":     StatusDone,
		"raw_result": raw,
	})
}

// Fail moves a processing job to Error with the provider's message.
func (s *Store) Fail(id, message string) (bool, error) {
	return s.transition(id, map[string]any{
		"status":    StatusError,
		"error_msg": message,
	})
}

func (s *Store) transition(id string, updates map[string]any) (bool, error) {
	res := s.db.Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return false, errorsx.Wrap(res.Error, errorsx.ReasonJobStore)
	}
	return res.RowsAffected == 1, nil
}
