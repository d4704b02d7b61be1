// Package template provides placeholder interpolation for dynamic workflow
// step configuration. Templates use {{path.to.value}} placeholders resolved
// against the execution context; a placeholder whose path does not resolve is
// left in the output verbatim, so partially populated contexts round-trip.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/siteforge/relay/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\-]+)\s*\}\}`)

// Render replaces every {{path}} occurrence in input with the string form of
// the value resolved from vars. Unresolved placeholders survive unchanged.
func Render(input string, vars map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := Lookup(vars, path)
		if !ok {
			return match
		}

		return stringify(value)
	})
}

// RenderWithContext renders input against an execution context's variables.
func RenderWithContext(input string, executionCtx *models.ExecutionContext) string {
	return Render(input, executionCtx.Vars)
}

// RenderAny interpolates every string reachable inside value (including map
// keys' values and slice elements), returning a new structure. Non-string
// leaves pass through untouched.
func RenderAny(value any, vars map[string]any) any {
	switch typed := value.(type) {
	case string:
		return Render(typed, vars)
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = RenderAny(v, vars)
		}

		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = RenderAny(v, vars)
		}

		return out
	default:
		return value
	}
}

// Lookup walks a dot-separated path through nested maps, short-circuiting
// the moment a segment is missing or the current value is not traversable.
func Lookup(vars map[string]any, path string) (any, bool) {
	var current any = vars

	for segment := range strings.SplitSeq(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case map[string]any, []any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}

		return string(encoded)
	case float64:
		// Trigger payloads arrive through JSON, so whole numbers land as
		// float64. Keep them free of a trailing ".000000".
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}

		return fmt.Sprintf("%v", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
