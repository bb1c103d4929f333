package inmemory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/finlens/statement-analyzer/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.AnalyzeStatementJob {
	t.Helper()
	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached status %s (last: %+v)", jobID, want, job)
	return nil
}

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)
	defer q.Close()

	var mu sync.Mutex
	var handled []string
	handler := func(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
		mu.Lock()
		handled = append(handled, job.GCSURI)
		mu.Unlock()
		job.TransactionCount = 7
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.AnalyzeStatementJob{
		GCSURI: "gs://statements/jan.pdf",
		UserID: "user-1",
	}
	if err := q.PublishAnalyzeStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishAnalyzeStatement: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("expected job ID to be assigned on publish")
	}

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if got.TransactionCount != 7 {
		t.Errorf("TransactionCount = %d, want 7", got.TransactionCount)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Error("expected StartedAt and CompletedAt to be set")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || handled[0] != "gs://statements/jan.pdf" {
		t.Errorf("handled = %v", handled)
	}
}

func TestQueueRetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	defer q.Close()

	var mu sync.Mutex
	attempts := 0
	handler := func(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return fmt.Errorf("document is corrupt")
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.AnalyzeStatementJob{
		GCSURI:     "gs://statements/bad.pdf",
		UserID:     "user-1",
		MaxRetries: 2,
	}
	if err := q.PublishAnalyzeStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishAnalyzeStatement: %v", err)
	}

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if got.Error != "document is corrupt" {
		t.Errorf("Error = %q", got.Error)
	}
	if got.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", got.RetryCount)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}
}

func TestQueueRejectsPublishAfterClose(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := q.PublishAnalyzeStatement(context.Background(), &jobs.AnalyzeStatementJob{GCSURI: "gs://b/o.pdf"})
	if err == nil {
		t.Fatal("expected error publishing to a closed queue")
	}
}

func TestStoreListJobsFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Now()
	seed := []*jobs.AnalyzeStatementJob{
		{JobID: "a", UserID: "u1", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(-3 * time.Minute)},
		{JobID: "b", UserID: "u1", Status: jobs.JobStatusPending, CreatedAt: base.Add(-2 * time.Minute)},
		{JobID: "c", UserID: "u2", Status: jobs.JobStatusPending, CreatedAt: base.Add(-1 * time.Minute)},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob(%s): %v", j.JobID, err)
		}
	}

	got, err := store.ListJobs(ctx, jobs.JobFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(got) != 2 || got[0].JobID != "b" || got[1].JobID != "a" {
		t.Errorf("ListJobs(u1) order = %v", ids(got))
	}

	got, err = store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusPending, Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(got) != 1 || got[0].JobID != "c" {
		t.Errorf("ListJobs(pending, limit 1) = %v", ids(got))
	}
}

func ids(list []*jobs.AnalyzeStatementJob) []string {
	out := make([]string, len(list))
	for i, j := range list {
		out[i] = j.JobID
	}
	return out
}
