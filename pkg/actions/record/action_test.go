package record

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecords struct {
	persistence.RecordRepository

	rows map[string]*models.Record
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{rows: map[string]*models.Record{}}
}

func (f *fakeRecords) CreateRecord(_ context.Context, record *models.Record) error {
	f.rows[record.ID] = record

	return nil
}

func (f *fakeRecords) UpdateRecord(_ context.Context, record *models.Record) error {
	if _, ok := f.rows[record.ID]; !ok {
		return persistence.ErrRecordNotFound
	}

	f.rows[record.ID] = record

	return nil
}

func (f *fakeRecords) DeleteRecord(_ context.Context, _, _, id string) error {
	if _, ok := f.rows[id]; !ok {
		return persistence.ErrRecordNotFound
	}

	delete(f.rows, id)

	return nil
}

func (f *fakeRecords) RecordByID(_ context.Context, _, _, id string) (*models.Record, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}

	return row, nil
}

func execute(operation Operation, config map[string]any, records persistence.RecordRepository, vars map[string]any) *models.StepResult {
	action := NewAction(operation, config, records)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	executionCtx := models.ExecutionContext{SiteID: "site-1", Vars: vars}

	return action.Execute(context.Background(), executionCtx, logger)
}

func TestCreateRecordInterpolatesData(t *testing.T) {
	records := newFakeRecords()
	vars := map[string]any{"trigger": map[string]any{"email": "ada@example.com"}}

	result := execute(OperationCreate, map[string]any{
		"collection": "customers",
		"data": map[string]any{
			"email": "{{trigger.email}}",
			"plan":  "free",
		},
	}, records, vars)

	require.True(t, result.Success)

	recordID := result.Output["record_id"].(string)
	row := records.rows[recordID]
	require.NotNil(t, row)
	assert.Equal(t, "site-1", row.SiteID)
	assert.Equal(t, "customers", row.Collection)
	assert.Equal(t, "ada@example.com", row.Data["email"])
}

func TestUpdateRecordMergesFields(t *testing.T) {
	records := newFakeRecords()
	records.rows["r1"] = &models.Record{
		ID:         "r1",
		SiteID:     "site-1",
		Collection: "customers",
		Data:       map[string]any{"email": "ada@example.com", "plan": "free"},
	}

	result := execute(OperationUpdate, map[string]any{
		"collection": "customers",
		"record_id":  "r1",
		"data":       map[string]any{"plan": "pro"},
	}, records, map[string]any{})

	require.True(t, result.Success)
	assert.Equal(t, "pro", records.rows["r1"].Data["plan"])
	assert.Equal(t, "ada@example.com", records.rows["r1"].Data["email"])
}

func TestUpdateMissingRecordIsStepError(t *testing.T) {
	result := execute(OperationUpdate, map[string]any{
		"collection": "customers",
		"record_id":  "missing",
	}, newFakeRecords(), map[string]any{})

	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestDeleteRecord(t *testing.T) {
	records := newFakeRecords()
	records.rows["r1"] = &models.Record{ID: "r1"}

	result := execute(OperationDelete, map[string]any{
		"collection": "customers",
		"record_id":  "r1",
	}, records, map[string]any{})

	require.True(t, result.Success)
	assert.Equal(t, true, result.Output["deleted"])
	assert.Empty(t, records.rows)
}
