package repository

import (
	"context"
	"sync"
	"time"

	"transcode-notifier/entities"
)

type memoryRepo struct {
	mu   sync.Mutex
	jobs map[string]entities.Job
}

// NewMemoryRepo returns a process-local JobRepository, used for local
// development and tests.
func NewMemoryRepo() JobRepository {
	return &memoryRepo{jobs: make(map[string]entities.Job)}
}

func (r *memoryRepo) FindJobById(ctx context.Context, id string) (*entities.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

func (r *memoryRepo) CreateJob(ctx context.Context, job *entities.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return ErrJobExists
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.LastModified.IsZero() {
		job.LastModified = now
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryRepo) UpdateJob(ctx context.Context, id string, mutate MutateFunc) (*entities.Job, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, false, ErrJobNotFound
	}

	changed, err := mutate(&job)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		current := r.jobs[id]
		return &current, false, nil
	}

	job.LastModified = time.Now().UTC()
	r.jobs[id] = job
	return &job, true, nil
}

func (r *memoryRepo) AutoMigrate(ctx context.Context) error {
	return nil
}
