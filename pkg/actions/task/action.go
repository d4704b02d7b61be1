// Package task implements the create_task workflow action.
package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/template"
)

type Action struct {
	Title       string
	Description string
	Assignee    string
	DueAt       string

	records persistence.RecordRepository
}

func NewAction(config map[string]any, records persistence.RecordRepository) *Action {
	title, _ := config["title"].(string)
	description, _ := config["description"].(string)
	assignee, _ := config["assignee"].(string)
	dueAt, _ := config["due_at"].(string)

	return &Action{
		Title:       title,
		Description: description,
		Assignee:    assignee,
		DueAt:       dueAt,
		records:     records,
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult {
	title := template.Render(a.Title, executionCtx.Vars)
	if title == "" {
		return models.Failed("create_task requires a title")
	}

	row := &models.Task{
		ID:          uuid.New().String(),
		SiteID:      executionCtx.SiteID,
		Title:       title,
		Description: template.Render(a.Description, executionCtx.Vars),
		Assignee:    template.Render(a.Assignee, executionCtx.Vars),
		CreatedAt:   time.Now().UTC(),
	}

	if a.DueAt != "" {
		rendered := template.Render(a.DueAt, executionCtx.Vars)

		dueAt, err := time.Parse(time.RFC3339, rendered)
		if err != nil {
			return models.Failed("invalid due_at: " + err.Error())
		}

		row.DueAt = &dueAt
	}

	if err := a.records.CreateTask(ctx, row); err != nil {
		return models.Failed(err.Error())
	}

	logger.InfoContext(ctx, "Task created", "task_id", row.ID, "title", title)

	return models.Succeeded(map[string]any{
		"task_id": row.ID,
	})
}
