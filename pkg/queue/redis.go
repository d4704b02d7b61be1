package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const defaultJobKey = "relay:delayed_jobs"

// RedisQueue stores delayed jobs in a sorted set scored by resume time.
// Workers poll DequeueDue; ZPopMin-style claiming keeps a job from being
// delivered to two pollers.
type RedisQueue struct {
	client redis.UniversalClient
	key    string
	logger *slog.Logger
}

// NewRedisQueue connects to redis at addr and verifies the connection.
func NewRedisQueue(ctx context.Context, logger *slog.Logger, addr, password string, db int) (*RedisQueue, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	queue := &RedisQueue{
		client: client,
		key:    defaultJobKey,
		logger: logger.With("module", "redis_queue", "addr", addr),
	}

	queue.logger.InfoContext(ctx, "Connected to Redis")

	return queue, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, job DelayedJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal delayed job: %w", err)
	}

	err = q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(job.ResumeAt.UnixMilli()),
		Member: payload,
	}).Err()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue delayed job: %w", err)
	}

	q.logger.InfoContext(ctx, "Enqueued delayed job",
		"job_id", job.ID,
		"execution_id", job.ExecutionID,
		"step_id", job.StepID,
		"resume_at", job.ResumeAt)

	return job.ID, nil
}

func (q *RedisQueue) DequeueDue(ctx context.Context, now time.Time, limit int) ([]DelayedJob, error) {
	members, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read due jobs: %w", err)
	}

	jobs := make([]DelayedJob, 0, len(members))

	for _, member := range members {
		// ZRem returns 0 when another poller claimed the member first.
		removed, err := q.client.ZRem(ctx, q.key, member).Result()
		if err != nil {
			return jobs, fmt.Errorf("failed to claim due job: %w", err)
		}

		if removed == 0 {
			continue
		}

		var job DelayedJob
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			q.logger.ErrorContext(ctx, "Dropping malformed delayed job", "error", err)

			continue
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (q *RedisQueue) Close(_ context.Context) error {
	return q.client.Close()
}
