package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteforge/relay/pkg/events"
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence/file"
	"github.com/siteforge/relay/pkg/protocol"
	"github.com/siteforge/relay/pkg/registry"
	"github.com/siteforge/relay/pkg/web"
	"github.com/siteforge/relay/pkg/workflow"
)

type capturePublisher struct {
	published []events.Event
	keys      []string
}

func (p *capturePublisher) Publish(_ context.Context, key string, event events.Event) error {
	p.published = append(p.published, event)
	p.keys = append(p.keys, key)

	return nil
}

type noopAction struct{}

func (noopAction) Execute(context.Context, models.ExecutionContext, *slog.Logger) *models.StepResult {
	return models.Succeeded(nil)
}

type noopFactory struct{ id string }

func (f noopFactory) ID() string                                   { return f.id }
func (f noopFactory) Create(map[string]any) (protocol.Action, error) { return noopAction{}, nil }
func (f noopFactory) Schema() map[string]any                       { return nil }

func setupTestApp(t *testing.T) (*fiber.App, *workflow.Repository, *capturePublisher) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	repository := workflow.NewRepository(store)
	publisher := &capturePublisher{}

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(noopFactory{id: string(models.ActionSendEmail)})
	reg.RegisterAction(noopFactory{id: string(models.ActionAddTag)})

	handlers := web.NewAPIHandlers(
		repository,
		store.Executions(),
		publisher,
		validator.New(validator.WithRequiredStructEnabled()),
		reg,
		slog.Default(),
	)

	app := fiber.New()

	sites := app.Group("/sites/:siteId")
	sites.Get("/workflows", handlers.GetWorkflows)
	sites.Post("/workflows", handlers.CreateWorkflow)
	sites.Post("/triggers/:triggerType", handlers.FireTrigger)

	app.Get("/workflows/:id", handlers.GetWorkflow)
	app.Patch("/workflows/:id", handlers.UpdateWorkflow)
	app.Delete("/workflows/:id", handlers.DeleteWorkflow)
	app.Get("/workflows/:id/executions", handlers.GetExecutions)
	app.Get("/executions/:id", handlers.GetExecution)
	app.Get("/executions/:id/steps", handlers.GetExecutionSteps)
	app.Get("/health", handlers.HealthCheck)

	return app, repository, publisher
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, target))
}

func TestCreateWorkflow(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	resp := postJSON(t, app, "/sites/site-1/workflows", web.CreateWorkflowRequest{
		Name:        "Welcome email",
		Description: "Greets new signups",
		TriggerType: string(models.TriggerUserSignedUp),
		Active:      true,
		Steps: []web.StepRequest{
			{Name: "greet", ActionType: string(models.ActionSendEmail),
				Configuration: map[string]any{"subject": "Hi", "body": "Welcome"}},
		},
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "site-1", created.SiteID)
	assert.Equal(t, models.TriggerUserSignedUp, created.TriggerType)
	require.Len(t, created.Steps, 1)
	assert.NotEmpty(t, created.Steps[0].ID)
}

func TestCreateWorkflowValidation(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	tests := []struct {
		name string
		req  web.CreateWorkflowRequest
	}{
		{
			name: "name too short",
			req:  web.CreateWorkflowRequest{Name: "ab", TriggerType: string(models.TriggerManual)},
		},
		{
			name: "missing trigger type",
			req:  web.CreateWorkflowRequest{Name: "No trigger"},
		},
		{
			name: "unknown trigger type",
			req:  web.CreateWorkflowRequest{Name: "Bad trigger", TriggerType: "comet_sighted"},
		},
		{
			name: "unknown action type",
			req: web.CreateWorkflowRequest{
				Name:        "Bad action",
				TriggerType: string(models.TriggerManual),
				Steps:       []web.StepRequest{{Name: "x", ActionType: "teleport"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := postJSON(t, app, "/sites/site-1/workflows", tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestWorkflowLifecycle(t *testing.T) {
	t.Parallel()

	app, repository, _ := setupTestApp(t)

	created, err := repository.Create(context.Background(), &models.Workflow{
		SiteID:      "site-1",
		Name:        "Tag buyers",
		TriggerType: models.TriggerOrderPlaced,
		Active:      true,
		Steps: []*models.WorkflowStep{
			{Name: "tag", ActionType: models.ActionAddTag, Position: 0,
				Configuration: map[string]any{"collection": "customers", "record_id": "r1", "tag": "buyer"}},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/workflows/"+created.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded models.Workflow
	decodeBody(t, resp, &loaded)
	assert.Equal(t, "Tag buyers", loaded.Name)

	// partial update flips active without touching steps
	inactive := false
	payload, err := json.Marshal(web.UpdateWorkflowRequest{Active: &inactive})
	require.NoError(t, err)

	patch := httptest.NewRequest(http.MethodPatch, "/workflows/"+created.ID, bytes.NewReader(payload))
	patch.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(patch)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decodeBody(t, resp, &loaded)
	assert.False(t, loaded.Active)
	assert.Len(t, loaded.Steps, 1)

	del := httptest.NewRequest(http.MethodDelete, "/workflows/"+created.ID, nil)
	resp, err = app.Test(del)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/workflows/"+created.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetWorkflowNotFound(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workflows/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFireTrigger(t *testing.T) {
	t.Parallel()

	app, _, publisher := setupTestApp(t)

	resp := postJSON(t, app, "/sites/site-1/triggers/form_submitted", map[string]any{
		"form_id": "contact",
		"email":   "ada@example.com",
	})

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, true, body["accepted"])
	assert.NotEmpty(t, body["event_id"])

	require.Len(t, publisher.published, 1)
	assert.Equal(t, []string{"site-1"}, publisher.keys)

	triggered, ok := publisher.published[0].(events.WorkflowTriggered)
	require.True(t, ok)
	assert.Equal(t, models.TriggerFormSubmitted, triggered.TriggerType)
	assert.Equal(t, "contact", triggered.TriggerData["form_id"])
}

func TestFireTriggerUnknownType(t *testing.T) {
	t.Parallel()

	app, _, publisher := setupTestApp(t)

	resp := postJSON(t, app, "/sites/site-1/triggers/comet_sighted", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, publisher.published)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	app, _, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}
