package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/finlens/statement-analyzer/internal/jobs"
)

// Store is an in-memory JobStore. Data is lost on restart; a
// database-backed store can replace it behind the same interface.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.AnalyzeStatementJob
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.AnalyzeStatementJob)}
}

func (s *Store) SaveJob(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.AnalyzeStatementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	cp := *job
	return &cp, nil
}

func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.AnalyzeStatementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.AnalyzeStatementJob
	for _, job := range s.jobs {
		if filter.UserID != "" && job.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		cp := *job
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}
