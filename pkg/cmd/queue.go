package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/mailflow/pkg/queue"
)

// DefaultQueueURL is a queue both binaries can share.
const DefaultQueueURL = "redis://localhost:6379/0"

// ErrInProcessQueue is returned when a process that only consumes jobs is
// pointed at a queue no other process can write to.
var ErrInProcessQueue = errors.New("memory:// queue is private to one process; use a redis:// queue shared with the API")

// IsInProcessQueue reports whether the URL names the in-memory queue.
func IsInProcessQueue(queueURL string) bool {
	scheme, _, _ := strings.Cut(queueURL, "://")

	return scheme == "memory" || scheme == ""
}

// RequireSharedQueue fails for queues that live in a single process.
func RequireSharedQueue(queueURL string) error {
	if IsInProcessQueue(queueURL) {
		return ErrInProcessQueue
	}

	return nil
}

// NewJobQueue builds the delayed job queue named by the URL scheme.
func NewJobQueue(ctx context.Context, logger *slog.Logger, queueURL string, pollInterval time.Duration) queue.JobQueue {
	scheme, _, _ := strings.Cut(queueURL, "://")

	switch scheme {
	case "redis", "rediss":
		q, err := queue.NewRedisQueueFromURL(ctx, logger, queueURL, pollInterval)
		if err != nil {
			panic(fmt.Errorf("failed to create Redis queue: %w", err))
		}

		return q
	case "memory", "":
		return queue.NewMemoryQueue(logger, pollInterval)
	default:
		panic("Unsupported queue provider: " + scheme)
	}
}
