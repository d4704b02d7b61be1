package protocol

import (
	"context"

	"github.com/siteforge/relay/pkg/models"
)

// TriggerCallback is invoked by event producers (HTTP receivers, the cron
// dispatcher, queue resumers) when a business event fires.
type TriggerCallback func(ctx context.Context, siteID string, triggerType models.TriggerType, payload map[string]any) error
