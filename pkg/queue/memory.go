package queue

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/mailflow/pkg/models"
)

type memoryEntry struct {
	id  string
	at  time.Time
	job models.EmailJob
}

// MemoryQueue keeps jobs in process memory. Jobs are lost on restart.
type MemoryQueue struct {
	logger       *slog.Logger
	pollInterval time.Duration
	now          func() time.Time

	mu      sync.Mutex
	jobs    map[string]memoryEntry
	handler Handler
	ticker  *time.Ticker
	done    chan struct{}
	started bool
}

// NewMemoryQueue creates an in-process queue polled every pollInterval once started.
func NewMemoryQueue(logger *slog.Logger, pollInterval time.Duration) *MemoryQueue {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &MemoryQueue{
		logger:       logger.With("module", "memory_queue"),
		pollInterval: pollInterval,
		now:          time.Now,
		jobs:         make(map[string]memoryEntry),
	}
}

func (q *MemoryQueue) Schedule(_ context.Context, at time.Time, job models.EmailJob) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	q.mu.Lock()
	q.jobs[id.String()] = memoryEntry{id: id.String(), at: at, job: job}
	q.mu.Unlock()

	return id.String(), nil
}

func (q *MemoryQueue) Cancel(_ context.Context, jobID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.jobs[jobID]; !ok {
		return 0, nil
	}

	delete(q.jobs, jobID)

	return 1, nil
}

func (q *MemoryQueue) Exists(_ context.Context, jobID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok := q.jobs[jobID]

	return ok, nil
}

// Len returns the number of jobs waiting to fire.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.jobs)
}

// Start polls for due jobs on a ticker until ctx is done or Stop is called.
func (q *MemoryQueue) Start(ctx context.Context, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return nil
	}

	q.handler = handler
	q.ticker = time.NewTicker(q.pollInterval)
	q.done = make(chan struct{})
	q.started = true

	go q.poll(ctx, q.ticker, q.done)

	q.logger.Info("Memory job queue started", "poll_interval", q.pollInterval)

	return nil
}

func (q *MemoryQueue) Stop(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return nil
	}

	q.ticker.Stop()
	close(q.done)
	q.started = false

	q.logger.Info("Memory job queue stopped")

	return nil
}

func (q *MemoryQueue) poll(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.mu.Lock()
			handler := q.handler
			q.mu.Unlock()

			q.FireDue(ctx, q.now(), handler)
		}
	}
}

// FireDue synchronously runs every job due at or before now in send order and
// returns the number of jobs fired.
func (q *MemoryQueue) FireDue(ctx context.Context, now time.Time, handler Handler) int {
	if handler == nil {
		return 0
	}

	q.mu.Lock()

	due := make([]memoryEntry, 0)

	for id, entry := range q.jobs {
		if !entry.at.After(now) {
			due = append(due, entry)
			delete(q.jobs, id)
		}
	}

	q.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}

		return due[i].at.Before(due[j].at)
	})

	for _, entry := range due {
		if err := handler(ctx, entry.id, entry.job); err != nil {
			q.logger.Error("Job handler failed", "job_id", entry.id, "error", err)
		}
	}

	return len(due)
}
