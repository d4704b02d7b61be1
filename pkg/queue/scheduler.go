package queue

import (
	"context"
	"log/slog"
	"time"
)

// DefaultMaxInlineDelay is the longest wait served by blocking the current
// execution; anything longer goes through the durable queue. Chosen to stay
// inside a synchronous request time budget.
const DefaultMaxInlineDelay = 30 * time.Second

// Scheduler decides whether a delay blocks inline or is handed to the
// durable queue for later resumption.
type Scheduler struct {
	maxInline time.Duration
	queue     Queue
	logger    *slog.Logger

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewScheduler(queue Queue, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		maxInline: DefaultMaxInlineDelay,
		queue:     queue,
		logger:    logger.With("module", "delay_scheduler"),
		sleep:     sleepContext,
	}
}

// WithMaxInlineDelay overrides the inline threshold.
func (s *Scheduler) WithMaxInlineDelay(d time.Duration) *Scheduler {
	s.maxInline = d

	return s
}

// Schedule dispatches a computed delay. The returned map is the delay step's
// output:
//   - {waited, inline:true} after blocking for short delays
//   - {queued:true, job_id, resume_at} when a durable job was enqueued
//   - {scheduled:true, resume_at} on the degraded path where no queue target
//     exists; control never actually resumes, so a warning is logged.
func (s *Scheduler) Schedule(ctx context.Context, delayMs int64, job *DelayedJob) (map[string]any, error) {
	delay := time.Duration(delayMs) * time.Millisecond

	if delay <= s.maxInline {
		err := s.sleep(ctx, delay)
		if err != nil {
			return nil, err
		}

		return map[string]any{"waited": delayMs, "inline": true}, nil
	}

	resumeAt := time.Now().UTC().Add(delay)

	if job != nil && s.queue != nil {
		job.DelayMs = delayMs
		job.ResumeAt = resumeAt

		jobID, err := s.queue.Enqueue(ctx, *job)
		if err == nil {
			return map[string]any{
				"queued":    true,
				"job_id":    jobID,
				"resume_at": resumeAt.Format(time.RFC3339),
			}, nil
		}

		s.logger.WarnContext(ctx, "Delayed-job enqueue failed, delay will not resume",
			"error", err, "resume_at", resumeAt)
	} else {
		s.logger.WarnContext(ctx, "No queue target for long delay, delay will not resume",
			"delay_ms", delayMs, "resume_at", resumeAt)
	}

	return map[string]any{
		"scheduled": true,
		"resume_at": resumeAt.Format(time.RFC3339),
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
