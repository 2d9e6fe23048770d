// Package queue provides the delayed job queue that fires scheduled emails.
package queue

import (
	"context"
	"time"

	"github.com/dukex/mailflow/pkg/models"
)

// Handler is invoked once per job at or after its scheduled instant.
type Handler func(ctx context.Context, jobID string, job models.EmailJob) error

// JobQueue schedules email jobs for later execution.
type JobQueue interface {
	// Schedule registers job to fire at the given instant and returns its handle.
	Schedule(ctx context.Context, at time.Time, job models.EmailJob) (string, error)
	// Cancel removes a job. It returns the number of jobs removed, 0 when the
	// job already fired or was canceled before.
	Cancel(ctx context.Context, jobID string) (int, error)
	// Exists reports whether the job is still waiting to fire.
	Exists(ctx context.Context, jobID string) (bool, error)
	// Start begins polling for due jobs and hands each one to handler.
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}
