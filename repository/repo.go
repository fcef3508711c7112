package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"transcode-notifier/entities"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobExists   = errors.New("job already exists")
)

// MutateFunc changes job in place and reports whether anything changed.
// Returning false skips the write.
type MutateFunc func(job *entities.Job) (bool, error)

type JobRepository interface {
	FindJobById(ctx context.Context, id string) (*entities.Job, error)
	CreateJob(ctx context.Context, job *entities.Job) error
	// UpdateJob loads, mutates and saves one job atomically with respect to
	// other UpdateJob calls for the same id.
	UpdateJob(ctx context.Context, id string, mutate MutateFunc) (*entities.Job, bool, error)
	AutoMigrate(ctx context.Context) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB, debug bool) (JobRepository, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger:         logger.Default.LogMode(level),
			TranslateError: true,
		},
	)
	if err != nil {
		return nil, err
	}
	return &repo{
		db: gormDB,
	}, nil
}

func (r *repo) GetDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *repo) FindJobById(ctx context.Context, id string) (*entities.Job, error) {
	job := &entities.Job{}
	err := r.GetDB(ctx).First(job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	return job, nil
}

func (r *repo) CreateJob(ctx context.Context, job *entities.Job) error {
	err := r.GetDB(ctx).Create(job).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrJobExists
	}
	return err
}

func (r *repo) UpdateJob(ctx context.Context, id string, mutate MutateFunc) (*entities.Job, bool, error) {
	job := &entities.Job{}
	updated := false
	err := r.GetDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(job, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		if err != nil {
			return err
		}

		changed, err := mutate(job)
		if err != nil || !changed {
			return err
		}

		job.LastModified = time.Now().UTC()
		if err := tx.Save(job).Error; err != nil {
			return err
		}
		updated = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return job, updated, nil
}

func (r *repo) AutoMigrate(ctx context.Context) error {
	return r.GetDB(ctx).AutoMigrate(&entities.Job{})
}
