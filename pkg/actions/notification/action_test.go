package notification

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

	notifications []*models.Notification
}

func (f *fakeRecords) CreateNotification(_ context.Context, notification *models.Notification) error {
	f.notifications = append(f.notifications, notification)

	return nil
}

func TestSendNotification(t *testing.T) {
	records := &fakeRecords{}
	action := NewAction(map[string]any{
		"user_id": "{{trigger.user_id}}",
		"title":   "Order shipped",
		"body":    "Order {{trigger.order_id}} is on its way.",
	}, records)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	executionCtx := models.ExecutionContext{
		SiteID: "site-1",
		Vars: map[string]any{
			"trigger": map[string]any{"user_id": "u1", "order_id": "o-77"},
		},
	}

	result := action.Execute(context.Background(), executionCtx, logger)
	require.True(t, result.Success)
	require.Len(t, records.notifications, 1)
	assert.Equal(t, "u1", records.notifications[0].UserID)
	assert.Equal(t, "Order o-77 is on its way.", records.notifications[0].Body)
	assert.Equal(t, result.Output["notification_id"], records.notifications[0].ID)
}

func TestMissingUserFails(t *testing.T) {
	action := NewAction(map[string]any{"title": "t"}, &fakeRecords{})
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	result := action.Execute(context.Background(), models.ExecutionContext{Vars: map[string]any{}}, logger)
	require.False(t, result.Success)
}
