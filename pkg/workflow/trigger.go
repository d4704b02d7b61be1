package workflow

import (
	"context"
	"log/slog"

	"github.com/siteforge/relay/pkg/models"
)

// TriggerReport summarizes one trigger firing: how many workflows ran and
// what each produced.
type TriggerReport struct {
	SiteID        string             `json:"site_id"`
	TriggerType   models.TriggerType `json:"trigger_type"`
	ExecutedCount int                `json:"executed_count"`
	Reports       []*Report          `json:"reports"`
}

// TriggerService matches a trigger firing to a site's workflows and runs
// each match. A firing with no matching workflow is a successful no-op.
type TriggerService struct {
	repository *Repository
	executor   *Executor
	logger     *slog.Logger
}

func NewTriggerService(repository *Repository, executor *Executor, logger *slog.Logger) *TriggerService {
	return &TriggerService{
		repository: repository,
		executor:   executor,
		logger:     logger.With("module", "trigger_service"),
	}
}

// Run fires a trigger synchronously. A firing must never fail the
// caller's primary operation: a lookup failure is logged and reported as
// zero executions, and workflows are isolated from each other — one
// failing, even on an engine fault, never prevents the rest from running.
func (s *TriggerService) Run(ctx context.Context, siteID string, triggerType models.TriggerType, triggerData map[string]any) (*TriggerReport, error) {
	logger := s.logger.With("site_id", siteID, "trigger_type", triggerType)

	report := &TriggerReport{
		SiteID:      siteID,
		TriggerType: triggerType,
		Reports:     []*Report{},
	}

	if !triggerType.IsValid() {
		logger.Warn("Ignoring unknown trigger type")

		return report, nil
	}

	workflows, err := s.repository.MatchTrigger(ctx, siteID, triggerType)
	if err != nil {
		logger.ErrorContext(ctx, "Workflow lookup failed, skipping trigger", "error", err)

		return report, nil
	}

	if len(workflows) == 0 {
		logger.DebugContext(ctx, "No workflows match trigger")

		return report, nil
	}

	for _, workflow := range workflows {
		run, err := s.executor.Execute(ctx, workflow, triggerData)
		if err != nil {
			logger.ErrorContext(ctx, "Workflow execution faulted",
				"workflow_id", workflow.ID, "error", err)

			// Engine faults still get a result entry attributed to the
			// workflow, so the caller sees every match that was attempted.
			run = &Report{WorkflowID: workflow.ID, Error: err.Error()}
		}

		report.ExecutedCount++
		report.Reports = append(report.Reports, run)
	}

	logger.InfoContext(ctx, "Trigger processed", "executed_count", report.ExecutedCount)

	return report, nil
}

// RunDetached fires a trigger without waiting for the outcome. The caller's
// context is not reused so an HTTP request ending cannot cancel the run.
func (s *TriggerService) RunDetached(siteID string, triggerType models.TriggerType, triggerData map[string]any) {
	go func() {
		_, err := s.Run(context.Background(), siteID, triggerType, triggerData)
		if err != nil {
			s.logger.Error("Detached trigger run failed",
				"site_id", siteID, "trigger_type", triggerType, "error", err)
		}
	}()
}
