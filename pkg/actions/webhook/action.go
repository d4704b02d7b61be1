// Package webhook implements the send_webhook workflow action: an outbound
// HTTP request with interpolated URL, headers and body.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/template"
)

const defaultTimeout = 30 * time.Second

type Action struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string

	client *http.Client
}

func NewAction(config map[string]any, client *http.Client) *Action {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	url, _ := config["url"].(string)
	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	body, _ := config["body"].(string)

	headers := map[string]string{}
	if raw, ok := config["headers"].(map[string]any); ok {
		for name, value := range raw {
			if typed, ok := value.(string); ok {
				headers[name] = typed
			}
		}
	}

	return &Action{
		URL:     url,
		Method:  method,
		Headers: headers,
		Body:    body,
		client:  client,
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult {
	url := template.Render(a.URL, executionCtx.Vars)
	body := template.Render(a.Body, executionCtx.Vars)

	var reader io.Reader
	if body != "" {
		// The body is declared JSON; interpolation happens on the raw
		// string, so a bad substitution can break it. Fail the step rather
		// than ship a malformed payload.
		var payload any
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			return models.Failed("body is not valid JSON after interpolation: " + err.Error())
		}

		reader = bytes.NewBufferString(body)
	}

	request, err := http.NewRequestWithContext(ctx, a.Method, url, reader)
	if err != nil {
		return models.Failed(err.Error())
	}

	request.Header.Set("Content-Type", "application/json")

	for name, value := range a.Headers {
		request.Header.Set(name, template.Render(value, executionCtx.Vars))
	}

	response, err := a.client.Do(request)
	if err != nil {
		return models.Failed(err.Error())
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return models.Failed(err.Error())
	}

	output := map[string]any{
		"status": response.StatusCode,
		"body":   parseBody(responseBody),
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		logger.WarnContext(ctx, "Webhook returned non-success status", "url", url, "status", response.StatusCode)

		return &models.StepResult{
			Success: false,
			Output:  output,
			Error:   fmt.Sprintf("HTTP %d", response.StatusCode),
		}
	}

	return models.Succeeded(output)
}

// parseBody decodes JSON responses so later steps can address fields by
// path; anything else stays a string.
func parseBody(raw []byte) any {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return decoded
	}

	return string(raw)
}
