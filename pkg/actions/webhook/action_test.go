package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/siteforge/relay/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(config map[string]any, vars map[string]any) *models.StepResult {
	action := NewAction(config, nil)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return action.Execute(context.Background(), models.ExecutionContext{Vars: vars}, logger)
}

func TestPostWithInterpolatedBody(t *testing.T) {
	var gotMethod, gotBody, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")

		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	vars := map[string]any{"trigger": map[string]any{"email": "ada@example.com"}}

	result := execute(map[string]any{
		"url":  server.URL,
		"body": `{"email":"{{trigger.email}}"}`,
	}, vars)

	require.True(t, result.Success)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, `{"email":"ada@example.com"}`, gotBody)
	assert.Equal(t, 200, result.Output["status"])

	body := result.Output["body"].(map[string]any)
	assert.Equal(t, true, body["ok"])
}

func TestCustomMethodAndHeaders(t *testing.T) {
	var gotMethod, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	result := execute(map[string]any{
		"url":    server.URL,
		"method": "PUT",
		"headers": map[string]any{
			"Authorization": "Bearer {{trigger.token}}",
		},
	}, map[string]any{"trigger": map[string]any{"token": "t0k"}})

	require.True(t, result.Success)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "Bearer t0k", gotAuth)
}

func TestInvalidBodyAfterInterpolationFails(t *testing.T) {
	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
	}))
	defer server.Close()

	// trigger.count is missing, so the placeholder survives interpolation
	// and the body is no longer valid JSON
	result := execute(map[string]any{
		"url":  server.URL,
		"body": `{"count": {{trigger.count}}}`,
	}, map[string]any{"trigger": map[string]any{}})

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "not valid JSON")
	assert.Zero(t, requests, "no request should be issued for a malformed body")
}

func TestNonSuccessStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	result := execute(map[string]any{"url": server.URL}, map[string]any{})

	require.False(t, result.Success)
	assert.Equal(t, "HTTP 502", result.Error)
	assert.Equal(t, 502, result.Output["status"])
}

func TestUnreachableHostFails(t *testing.T) {
	result := execute(map[string]any{"url": "http://127.0.0.1:1/nope"}, map[string]any{})
	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}
