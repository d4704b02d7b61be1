// Package schedule fires the scheduled trigger for workflows carrying a
// cron expression in their trigger configuration.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/siteforge/relay/pkg/eventbus"
	"github.com/siteforge/relay/pkg/events"
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
)

const DefaultRefreshInterval = 1 * time.Minute

// Dispatcher keeps one cron entry per active scheduled workflow and
// publishes a WorkflowTriggered event each time an entry fires. The
// workflow set is re-read from persistence on a fixed interval so edits
// made through the API are picked up without a restart.
type Dispatcher struct {
	workflows persistence.WorkflowRepository
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	cron      *cron.Cron
	refresh   time.Duration

	mu      sync.Mutex
	entries map[string]scheduleEntry
	done    chan struct{}
}

type scheduleEntry struct {
	entryID cron.EntryID
	expr    string
}

type DispatcherOption func(*Dispatcher)

func WithRefreshInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.refresh = interval
	}
}

func NewDispatcher(
	workflows persistence.WorkflowRepository,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	opts ...DispatcherOption,
) *Dispatcher {
	dispatcher := &Dispatcher{
		workflows: workflows,
		publisher: publisher,
		logger:    logger.With("module", "schedule"),
		cron:      cron.New(),
		refresh:   DefaultRefreshInterval,
		entries:   make(map[string]scheduleEntry),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(dispatcher)
	}

	return dispatcher
}

// Start loads the current schedules, starts the cron runner and keeps the
// entry set in sync until ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	err := d.Sync(ctx)
	if err != nil {
		return err
	}

	d.cron.Start()

	go d.refreshLoop(ctx)

	d.logger.InfoContext(ctx, "Schedule dispatcher started", "workflows", len(d.WorkflowIDs()))

	return nil
}

func (d *Dispatcher) Stop(ctx context.Context) {
	close(d.done)
	<-d.cron.Stop().Done()
	d.logger.InfoContext(ctx, "Schedule dispatcher stopped")
}

func (d *Dispatcher) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(d.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case <-ticker.C:
			err := d.Sync(ctx)
			if err != nil {
				d.logger.ErrorContext(ctx, "Failed to refresh schedules", "error", err)
			}
		}
	}
}

// Sync reconciles the cron entries with the active scheduled workflows.
// Workflows without a parseable cron expression are skipped with a warning.
func (d *Dispatcher) Sync(ctx context.Context) error {
	workflows, err := d.workflows.AllByTrigger(ctx, models.TriggerScheduled)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	desired := make(map[string]bool, len(workflows))

	for _, wf := range workflows {
		expr, _ := wf.TriggerConfig["cron"].(string)
		if expr == "" {
			d.logger.WarnContext(ctx, "Scheduled workflow has no cron expression", "workflow_id", wf.ID)

			continue
		}

		desired[wf.ID] = true

		existing, ok := d.entries[wf.ID]
		if ok && existing.expr == expr {
			continue
		}

		if ok {
			d.cron.Remove(existing.entryID)
		}

		workflowID, siteID := wf.ID, wf.SiteID

		entryID, err := d.cron.AddFunc(expr, func() {
			d.fire(workflowID, siteID)
		})
		if err != nil {
			d.logger.WarnContext(ctx, "Invalid cron expression",
				"workflow_id", wf.ID, "cron", expr, "error", err)

			continue
		}

		d.entries[wf.ID] = scheduleEntry{entryID: entryID, expr: expr}
	}

	for id, entry := range d.entries {
		if !desired[id] {
			d.cron.Remove(entry.entryID)
			delete(d.entries, id)
		}
	}

	return nil
}

// WorkflowIDs returns the workflows currently held as cron entries.
func (d *Dispatcher) WorkflowIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, 0, len(d.entries))
	for id := range d.entries {
		ids = append(ids, id)
	}

	return ids
}

func (d *Dispatcher) fire(workflowID, siteID string) {
	ctx := context.Background()

	event := events.WorkflowTriggered{
		BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, siteID, workflowID),
		TriggerType: models.TriggerScheduled,
		TriggerData: map[string]any{
			"workflow_id":  workflowID,
			"scheduled_at": time.Now().UTC().Format(time.RFC3339),
		},
	}

	err := d.publisher.Publish(ctx, siteID, event)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish scheduled trigger",
			"workflow_id", workflowID, "error", err)

		return
	}

	d.logger.InfoContext(ctx, "Scheduled trigger fired", "workflow_id", workflowID, "site_id", siteID)
}
