package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dukex/mailflow/pkg/models"
)

const (
	defaultKeyPrefix = "mailflow:jobs:"
	redisBatchSize   = 100
)

// RedisQueue stores job ids in a sorted set scored by fire time (unix millis)
// and payloads in a hash. Several pollers may share one Redis; a job runs on
// whichever poller removes it from the sorted set first.
type RedisQueue struct {
	client       *redis.Client
	logger       *slog.Logger
	pollInterval time.Duration
	dueKey       string
	payloadKey   string
	now          func() time.Time

	mu      sync.Mutex
	handler Handler
	ticker  *time.Ticker
	done    chan struct{}
	started bool
}

// NewRedisQueue creates a queue over an existing client.
func NewRedisQueue(client *redis.Client, logger *slog.Logger, pollInterval time.Duration, keyPrefix string) *RedisQueue {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	return &RedisQueue{
		client:       client,
		logger:       logger.With("module", "redis_queue"),
		pollInterval: pollInterval,
		dueKey:       keyPrefix + "due",
		payloadKey:   keyPrefix + "payload",
		now:          time.Now,
	}
}

// NewRedisQueueFromURL parses a redis:// URL and pings the server.
func NewRedisQueueFromURL(ctx context.Context, logger *slog.Logger, queueURL string, pollInterval time.Duration) (*RedisQueue, error) {
	opts, err := redis.ParseURL(queueURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis queue url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisQueue(client, logger, pollInterval, defaultKeyPrefix), nil
}

func (q *RedisQueue) Schedule(ctx context.Context, at time.Time, job models.EmailJob) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}

	jobID := id.String()

	// Payload first so a poller never sees an id without its payload.
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.payloadKey, jobID, payload)
	pipe.ZAdd(ctx, q.dueKey, redis.Z{Score: float64(at.UnixMilli()), Member: jobID})

	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Error("Failed to schedule job", "job_id", jobID, "error", err)

		return "", fmt.Errorf("failed to schedule job: %w", err)
	}

	return jobID, nil
}

func (q *RedisQueue) Cancel(ctx context.Context, jobID string) (int, error) {
	pipe := q.client.TxPipeline()
	removed := pipe.ZRem(ctx, q.dueKey, jobID)
	pipe.HDel(ctx, q.payloadKey, jobID)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to cancel job %s: %w", jobID, err)
	}

	return int(removed.Val()), nil
}

func (q *RedisQueue) Exists(ctx context.Context, jobID string) (bool, error) {
	err := q.client.ZScore(ctx, q.dueKey, jobID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func (q *RedisQueue) Start(ctx context.Context, handler Handler) error {
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

	q.logger.Info("Redis job queue started", "poll_interval", q.pollInterval, "key", q.dueKey)

	return nil
}

func (q *RedisQueue) Stop(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return nil
	}

	q.ticker.Stop()
	close(q.done)
	q.started = false

	q.logger.Info("Redis job queue stopped")

	return nil
}

// Close releases the underlying client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) poll(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
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

			if _, err := q.FireDue(ctx, q.now(), handler); err != nil {
				q.logger.Error("Failed to poll due jobs", "error", err)
			}
		}
	}
}

// FireDue claims and runs every job due at or before now. It returns the number
// of jobs this caller claimed.
func (q *RedisQueue) FireDue(ctx context.Context, now time.Time, handler Handler) (int, error) {
	if handler == nil {
		return 0, nil
	}

	ids, err := q.client.ZRangeByScore(ctx, q.dueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: redisBatchSize,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, err
	}

	fired := 0

	for _, jobID := range ids {
		claimed, err := q.client.ZRem(ctx, q.dueKey, jobID).Result()
		if err != nil {
			q.logger.Error("Failed to claim job", "job_id", jobID, "error", err)

			continue
		}

		if claimed == 0 {
			continue
		}

		job, err := q.takePayload(ctx, jobID)
		if err != nil {
			q.logger.Error("Failed to load job payload", "job_id", jobID, "error", err)

			continue
		}

		fired++

		if err := handler(ctx, jobID, job); err != nil {
			q.logger.Error("Job handler failed", "job_id", jobID, "error", err)
		}
	}

	return fired, nil
}

func (q *RedisQueue) takePayload(ctx context.Context, jobID string) (models.EmailJob, error) {
	var job models.EmailJob

	pipe := q.client.TxPipeline()
	get := pipe.HGet(ctx, q.payloadKey, jobID)
	pipe.HDel(ctx, q.payloadKey, jobID)

	if _, err := pipe.Exec(ctx); err != nil {
		return job, err
	}

	if err := json.Unmarshal([]byte(get.Val()), &job); err != nil {
		return job, fmt.Errorf("failed to decode job: %w", err)
	}

	return job, nil
}
