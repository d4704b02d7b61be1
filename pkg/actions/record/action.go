// Package record implements the create_record, update_record and
// delete_record workflow actions against the site record store.
package record

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/template"
)

// Operation selects which record store call the action performs.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

type Action struct {
	Operation  Operation
	Collection string
	RecordID   string
	Data       map[string]any

	records persistence.RecordRepository
}

func NewAction(operation Operation, config map[string]any, records persistence.RecordRepository) *Action {
	collection, _ := config["collection"].(string)
	recordID, _ := config["record_id"].(string)
	data, _ := config["data"].(map[string]any)

	return &Action{
		Operation:  operation,
		Collection: collection,
		RecordID:   recordID,
		Data:       data,
		records:    records,
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult {
	collection := template.Render(a.Collection, executionCtx.Vars)
	recordID := template.Render(a.RecordID, executionCtx.Vars)

	switch a.Operation {
	case OperationCreate:
		return a.create(ctx, executionCtx, collection, logger)
	case OperationUpdate:
		return a.update(ctx, executionCtx, collection, recordID, logger)
	case OperationDelete:
		return a.delete(ctx, executionCtx, collection, recordID, logger)
	default:
		return models.Failed(fmt.Sprintf("unknown record operation %q", a.Operation))
	}
}

func (a *Action) create(ctx context.Context, executionCtx models.ExecutionContext, collection string, logger *slog.Logger) *models.StepResult {
	data, _ := template.RenderAny(a.Data, executionCtx.Vars).(map[string]any)

	now := time.Now().UTC()
	row := &models.Record{
		ID:         uuid.New().String(),
		SiteID:     executionCtx.SiteID,
		Collection: collection,
		Data:       data,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := a.records.CreateRecord(ctx, row); err != nil {
		return models.Failed(err.Error())
	}

	logger.InfoContext(ctx, "Record created", "collection", collection, "record_id", row.ID)

	return models.Succeeded(map[string]any{
		"record_id":  row.ID,
		"collection": collection,
	})
}

func (a *Action) update(ctx context.Context, executionCtx models.ExecutionContext, collection, recordID string, logger *slog.Logger) *models.StepResult {
	row, err := a.records.RecordByID(ctx, executionCtx.SiteID, collection, recordID)
	if err != nil {
		return models.Failed(err.Error())
	}

	data, _ := template.RenderAny(a.Data, executionCtx.Vars).(map[string]any)

	if row.Data == nil {
		row.Data = map[string]any{}
	}

	for field, value := range data {
		row.Data[field] = value
	}

	row.UpdatedAt = time.Now().UTC()

	if err := a.records.UpdateRecord(ctx, row); err != nil {
		return models.Failed(err.Error())
	}

	logger.InfoContext(ctx, "Record updated", "collection", collection, "record_id", recordID)

	return models.Succeeded(map[string]any{
		"record_id": recordID,
		"updated":   true,
	})
}

func (a *Action) delete(ctx context.Context, executionCtx models.ExecutionContext, collection, recordID string, logger *slog.Logger) *models.StepResult {
	if err := a.records.DeleteRecord(ctx, executionCtx.SiteID, collection, recordID); err != nil {
		return models.Failed(err.Error())
	}

	logger.InfoContext(ctx, "Record deleted", "collection", collection, "record_id", recordID)

	return models.Succeeded(map[string]any{
		"record_id": recordID,
		"deleted":   true,
	})
}
