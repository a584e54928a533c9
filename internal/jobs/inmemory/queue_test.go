package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/centavoapp/centavo/internal/jobs"
)

func TestQueueRetriesThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := NewStore()
	q := NewQueue(4, 1, st)
	t.Cleanup(func() { _ = q.Close() })

	attempts := make(chan int, 8)
	count := 0
	handler := func(ctx context.Context, j jobs.Job) error {
		count++
		attempts <- count
		if count < 2 {
			return errors.New("transient")
		}
		return nil
	}
	if err := q.Start(ctx, handler); err != nil {
		t.Fatal(err)
	}

	job := &jobs.ImportStatementJob{OwnerID: uuid.New(), MaxRetries: 2}
	if err := q.PublishImport(ctx, job); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(5 * time.Second):
			t.Fatalf("attempt %d never ran", i+1)
		}
	}
	waitForStatus(t, st, job.JobID, jobs.JobStatusCompleted)
}

// A retry whose re-enqueue fails (the queue stopped during the backoff)
// must not leave the job stuck in "retrying".
func TestRetryAfterStopMarksJobFailed(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	q := NewQueue(1, 1, st)

	job := &jobs.ImportStatementJob{
		JobID:      uuid.NewString(),
		OwnerID:    uuid.New(),
		Status:     jobs.JobStatusPending,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: 1,
	}
	if err := st.SaveJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	if err := q.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	failing := func(ctx context.Context, j jobs.Job) error {
		return errors.New("boom")
	}
	q.processJob(ctx, job, failing)

	got := waitForStatus(t, st, job.JobID, jobs.JobStatusFailed)
	if got.Error == "" {
		t.Error("failed job carries no error")
	}
}

func waitForStatus(t *testing.T, st *Store, jobID string, want jobs.JobStatus) *jobs.ImportStatementJob {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := st.GetJob(ctx, jobID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == want {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("job status = %s, want %s", got.Status, want)
		}
		time.Sleep(25 * time.Millisecond)
	}
}
