package loop

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/siteforge/relay/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(config map[string]any, vars map[string]any) *models.StepResult {
	action := NewAction(config)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return action.Execute(context.Background(), models.ExecutionContext{Vars: vars}, logger)
}

func TestLoopOverLiteralList(t *testing.T) {
	result := execute(map[string]any{
		"items": []any{"a", "b", "c"},
		"steps": []any{"s1", "s2"},
	}, map[string]any{})

	require.True(t, result.Success)
	assert.Equal(t, 3, result.Output["item_count"])

	plans := result.Output["results"].([]any)
	require.Len(t, plans, 3)
	first := plans[0].(map[string]any)
	assert.Equal(t, "a", first["item"])
	assert.Equal(t, []string{"s1", "s2"}, first["steps"])
}

func TestLoopOverContextPath(t *testing.T) {
	vars := map[string]any{
		"trigger": map[string]any{
			"emails": []any{"a@b.c", "d@e.f"},
		},
	}

	result := execute(map[string]any{"items": "trigger.emails"}, vars)
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Output["item_count"])
}

func TestLoopNonArrayFails(t *testing.T) {
	cases := []map[string]any{
		{"items": "not a path and not a list"},
		{"items": 42},
		{"items": map[string]any{"a": 1}},
		{"items": "trigger.name"}, // resolves to a string
	}

	vars := map[string]any{"trigger": map[string]any{"name": "Ada"}}

	for _, config := range cases {
		result := execute(config, vars)
		require.False(t, result.Success)
		assert.Equal(t, "Loop items must be an array", result.Error)
	}
}
