// Package condition implements the conditional-branch workflow action:
// a list of clauses evaluated against the execution context, steering
// control flow through StepResult.NextSteps.
package condition

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/template"
)

// Supported clause operators. Unknown operators evaluate to false.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpIsEmpty     = "is_empty"
	OpIsNotEmpty  = "is_not_empty"
)

// Clause is one {field, operator, value} comparison. Field is a dotted path
// into the execution context.
type Clause struct {
	Field    string
	Operator string
	Value    any
}

type Action struct {
	Clauses    []Clause
	Logic      string // "and" (default) or "or"
	TrueSteps  []string
	FalseSteps []string
}

func NewAction(config map[string]any) (*Action, error) {
	logic, _ := config["logic"].(string)
	if logic == "" {
		logic = "and"
	}

	clauses, err := parseClauses(config["conditions"])
	if err != nil {
		return nil, err
	}

	return &Action{
		Clauses:    clauses,
		Logic:      logic,
		TrueSteps:  stringList(config["true_steps"]),
		FalseSteps: stringList(config["false_steps"]),
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult {
	results := make([]any, 0, len(a.Clauses))
	passed := a.Logic != "or"

	for _, clause := range a.Clauses {
		ok := evaluateClause(clause, executionCtx.Vars)
		results = append(results, ok)

		if a.Logic == "or" {
			passed = passed || ok
		} else {
			passed = passed && ok
		}
	}

	logger.DebugContext(ctx, "Evaluated condition",
		"passed", passed, "logic", a.Logic, "clauses", len(a.Clauses))

	result := models.Succeeded(map[string]any{
		"passed":  passed,
		"results": results,
	})

	if passed {
		result.NextSteps = a.TrueSteps
	} else {
		result.NextSteps = a.FalseSteps
	}

	return result
}

func evaluateClause(clause Clause, vars map[string]any) bool {
	value, found := template.Lookup(vars, clause.Field)

	switch clause.Operator {
	case OpEquals:
		return found && coerceString(value) == coerceString(clause.Value)
	case OpNotEquals:
		return !found || coerceString(value) != coerceString(clause.Value)
	case OpContains:
		return found && strings.Contains(coerceString(value), coerceString(clause.Value))
	case OpNotContains:
		return !found || !strings.Contains(coerceString(value), coerceString(clause.Value))
	case OpGreaterThan:
		left, right, ok := coerceNumbers(value, clause.Value)

		return found && ok && left > right
	case OpLessThan:
		left, right, ok := coerceNumbers(value, clause.Value)

		return found && ok && left < right
	case OpIsEmpty:
		return isEmpty(value, found)
	case OpIsNotEmpty:
		return !isEmpty(value, found)
	default:
		return false
	}
}

func isEmpty(value any, found bool) bool {
	if !found || value == nil {
		return true
	}

	switch typed := value.(type) {
	case string:
		return typed == ""
	case []any:
		return len(typed) == 0
	case map[string]any:
		return len(typed) == 0
	default:
		return false
	}
}

func coerceString(value any) string {
	if value == nil {
		return ""
	}

	return fmt.Sprintf("%v", value)
}

func coerceNumbers(left, right any) (float64, float64, bool) {
	l, lok := coerceNumber(left)
	r, rok := coerceNumber(right)

	return l, r, lok && rok
}

func coerceNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)

		return parsed, err == nil
	default:
		return 0, false
	}
}

func parseClauses(raw any) ([]Clause, error) {
	if raw == nil {
		return nil, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("'conditions' must be a list")
	}

	clauses := make([]Clause, 0, len(list))

	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("each condition must be an object")
		}

		field, _ := entry["field"].(string)
		operator, _ := entry["operator"].(string)

		clauses = append(clauses, Clause{
			Field:    field,
			Operator: operator,
			Value:    entry["value"],
		})
	}

	return clauses, nil
}

func stringList(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(list))

	for _, item := range list {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}

	return out
}
