// Package tag implements the add_tag and remove_tag workflow actions. Tags
// live on records in the site record store; both actions write back only
// when the tag set actually changed.
package tag

import (
	"context"
	"log/slog"
	"slices"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/template"
)

// Operation selects whether the tag is added or removed.
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationRemove Operation = "remove"
)

type Action struct {
	Operation  Operation
	Collection string
	RecordID   string
	Tag        string

	records persistence.RecordRepository
}

func NewAction(operation Operation, config map[string]any, records persistence.RecordRepository) *Action {
	collection, _ := config["collection"].(string)
	recordID, _ := config["record_id"].(string)
	tag, _ := config["tag"].(string)

	return &Action{
		Operation:  operation,
		Collection: collection,
		RecordID:   recordID,
		Tag:        tag,
		records:    records,
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult {
	collection := template.Render(a.Collection, executionCtx.Vars)
	recordID := template.Render(a.RecordID, executionCtx.Vars)
	tag := template.Render(a.Tag, executionCtx.Vars)

	if tag == "" {
		return models.Failed("tag must not be empty")
	}

	tags, err := a.records.Tags(ctx, executionCtx.SiteID, collection, recordID)
	if err != nil {
		return models.Failed(err.Error())
	}

	updated, changed := apply(a.Operation, tags, tag)

	if changed {
		if err := a.records.SetTags(ctx, executionCtx.SiteID, collection, recordID, updated); err != nil {
			return models.Failed(err.Error())
		}

		logger.InfoContext(ctx, "Record tags changed", "record_id", recordID, "tag", tag, "operation", string(a.Operation))
	}

	return models.Succeeded(map[string]any{
		"tags":    updated,
		"changed": changed,
	})
}

func apply(operation Operation, tags []string, tag string) ([]string, bool) {
	present := slices.Contains(tags, tag)

	switch operation {
	case OperationAdd:
		if present {
			return tags, false
		}

		return append(slices.Clone(tags), tag), true
	case OperationRemove:
		if !present {
			return tags, false
		}

		updated := slices.DeleteFunc(slices.Clone(tags), func(existing string) bool {
			return existing == tag
		})

		return updated, true
	default:
		return tags, false
	}
}
