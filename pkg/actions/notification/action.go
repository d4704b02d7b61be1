// Package notification implements the send_notification workflow action,
// which creates an in-app notification row for a user.
package notification

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
	UserID string
	Title  string
	Body   string

	records persistence.RecordRepository
}

func NewAction(config map[string]any, records persistence.RecordRepository) *Action {
	userID, _ := config["user_id"].(string)
	title, _ := config["title"].(string)
	body, _ := config["body"].(string)

	return &Action{
		UserID:  userID,
		Title:   title,
		Body:    body,
		records: records,
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult {
	userID := template.Render(a.UserID, executionCtx.Vars)
	title := template.Render(a.Title, executionCtx.Vars)

	if userID == "" || title == "" {
		return models.Failed("send_notification requires user_id and title")
	}

	row := &models.Notification{
		ID:        uuid.New().String(),
		SiteID:    executionCtx.SiteID,
		UserID:    userID,
		Title:     title,
		Body:      template.Render(a.Body, executionCtx.Vars),
		CreatedAt: time.Now().UTC(),
	}

	if err := a.records.CreateNotification(ctx, row); err != nil {
		return models.Failed(err.Error())
	}

	logger.InfoContext(ctx, "Notification created", "notification_id", row.ID, "user_id", userID)

	return models.Succeeded(map[string]any{
		"notification_id": row.ID,
	})
}
