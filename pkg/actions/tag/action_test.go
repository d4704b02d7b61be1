package tag

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

	tags     []string
	setCalls int
}

func (f *fakeRecords) Tags(_ context.Context, _, _, _ string) ([]string, error) {
	return f.tags, nil
}

func (f *fakeRecords) SetTags(_ context.Context, _, _, _ string, tags []string) error {
	f.tags = tags
	f.setCalls++

	return nil
}

func execute(operation Operation, tag string, records *fakeRecords) *models.StepResult {
	action := NewAction(operation, map[string]any{
		"collection": "customers",
		"record_id":  "r1",
		"tag":        tag,
	}, records)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return action.Execute(context.Background(), models.ExecutionContext{SiteID: "site-1", Vars: map[string]any{}}, logger)
}

func TestAddTag(t *testing.T) {
	records := &fakeRecords{tags: []string{"vip"}}

	result := execute(OperationAdd, "newsletter", records)
	require.True(t, result.Success)
	assert.Equal(t, []string{"vip", "newsletter"}, records.tags)
	assert.Equal(t, true, result.Output["changed"])
}

func TestAddExistingTagSkipsWrite(t *testing.T) {
	records := &fakeRecords{tags: []string{"vip"}}

	result := execute(OperationAdd, "vip", records)
	require.True(t, result.Success)
	assert.Zero(t, records.setCalls)
	assert.Equal(t, false, result.Output["changed"])
}

func TestRemoveTag(t *testing.T) {
	records := &fakeRecords{tags: []string{"vip", "newsletter"}}

	result := execute(OperationRemove, "vip", records)
	require.True(t, result.Success)
	assert.Equal(t, []string{"newsletter"}, records.tags)
}

func TestRemoveAbsentTagSkipsWrite(t *testing.T) {
	records := &fakeRecords{tags: []string{"vip"}}

	result := execute(OperationRemove, "newsletter", records)
	require.True(t, result.Success)
	assert.Zero(t, records.setCalls)
}

func TestEmptyTagFails(t *testing.T) {
	result := execute(OperationAdd, "", &fakeRecords{})
	require.False(t, result.Success)
}
