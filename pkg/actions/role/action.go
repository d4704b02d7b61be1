// Package role implements the assign_role workflow action. Assignments are
// idempotent: granting a role the user already holds is a successful no-op.
package role

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
	Role   string

	records persistence.RecordRepository
}

func NewAction(config map[string]any, records persistence.RecordRepository) *Action {
	userID, _ := config["user_id"].(string)
	roleName, _ := config["role"].(string)

	return &Action{
		UserID:  userID,
		Role:    roleName,
		records: records,
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult {
	userID := template.Render(a.UserID, executionCtx.Vars)
	roleName := template.Render(a.Role, executionCtx.Vars)

	if userID == "" || roleName == "" {
		return models.Failed("assign_role requires user_id and role")
	}

	exists, err := a.records.RoleAssignmentExists(ctx, executionCtx.SiteID, userID, roleName)
	if err != nil {
		return models.Failed(err.Error())
	}

	if exists {
		return models.Succeeded(map[string]any{
			"user_id":  userID,
			"role":     roleName,
			"assigned": false,
		})
	}

	assignment := &models.RoleAssignment{
		ID:        uuid.New().String(),
		SiteID:    executionCtx.SiteID,
		UserID:    userID,
		Role:      roleName,
		CreatedAt: time.Now().UTC(),
	}

	if err := a.records.CreateRoleAssignment(ctx, assignment); err != nil {
		return models.Failed(err.Error())
	}

	logger.InfoContext(ctx, "Role assigned", "user_id", userID, "role", roleName)

	return models.Succeeded(map[string]any{
		"user_id":  userID,
		"role":     roleName,
		"assigned": true,
	})
}
