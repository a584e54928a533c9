package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/jobs"
)

// Store is an in-memory implementation of jobs.JobStore. Import state is
// lost on restart, which matches the queue it tracks.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ImportStatementJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.ImportStatementJob),
	}
}

// SaveJob saves or updates a job. Values are copied both ways so callers
// cannot mutate stored state.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ImportStatementJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ImportStatementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs retrieves jobs matching the filter, newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ImportStatementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.ImportStatementJob
	for _, job := range s.jobs {
		if filter.OwnerID != uuid.Nil && job.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

var _ jobs.JobStore = (*Store)(nil)
