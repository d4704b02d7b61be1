// Package cmd provides common initialization for the relay binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/siteforge/relay/pkg/actions/condition"
	"github.com/siteforge/relay/pkg/actions/delay"
	"github.com/siteforge/relay/pkg/actions/loop"
	"github.com/siteforge/relay/pkg/actions/notification"
	"github.com/siteforge/relay/pkg/actions/record"
	"github.com/siteforge/relay/pkg/actions/role"
	"github.com/siteforge/relay/pkg/actions/sendemail"
	"github.com/siteforge/relay/pkg/actions/tag"
	"github.com/siteforge/relay/pkg/actions/task"
	"github.com/siteforge/relay/pkg/actions/webhook"
	"github.com/siteforge/relay/pkg/email"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/protocol"
	"github.com/siteforge/relay/pkg/queue"
	"github.com/siteforge/relay/pkg/registry"
)

// ActionDependencies carries the collaborators action factories need.
type ActionDependencies struct {
	Records    persistence.RecordRepository
	Sender     protocol.EmailSender
	HTTPClient *http.Client
	Scheduler  *queue.Scheduler
}

// NewRegistry builds the action registry with every native action handler
// registered, plus any action plugins found under pluginsPath.
func NewRegistry(ctx context.Context, logger *slog.Logger, pluginsPath string, deps ActionDependencies) *registry.Registry {
	reg := registry.NewRegistry(logger)

	if pluginsPath != "" {
		err := reg.LoadActionPlugins(pluginsPath)
		if err != nil {
			panic(fmt.Errorf("failed to load action plugins: %w", err))
		}
	}

	reg.RegisterAction(sendemail.NewFactory(deps.Sender))
	reg.RegisterAction(webhook.NewFactory(deps.HTTPClient))
	reg.RegisterAction(record.NewCreateFactory(deps.Records))
	reg.RegisterAction(record.NewUpdateFactory(deps.Records))
	reg.RegisterAction(record.NewDeleteFactory(deps.Records))
	reg.RegisterAction(tag.NewAddFactory(deps.Records))
	reg.RegisterAction(tag.NewRemoveFactory(deps.Records))
	reg.RegisterAction(role.NewFactory(deps.Records))
	reg.RegisterAction(delay.NewFactory(deps.Scheduler))
	reg.RegisterAction(condition.NewFactory())
	reg.RegisterAction(loop.NewFactory())
	reg.RegisterAction(task.NewFactory(deps.Records))
	reg.RegisterAction(notification.NewFactory(deps.Records))

	logger.InfoContext(ctx, "Action registry initialized", "actions", len(reg.ActionTypes()))

	return reg
}

// NewEmailSender returns the SMTP sender when SMTP_ADDR is configured and
// falls back to the log sender otherwise.
func NewEmailSender(logger *slog.Logger) protocol.EmailSender {
	addr := os.Getenv("SMTP_ADDR")
	if addr == "" {
		return email.NewLogSender(logger)
	}

	return email.NewSMTPSender(
		addr,
		os.Getenv("SMTP_FROM"),
		os.Getenv("SMTP_USERNAME"),
		os.Getenv("SMTP_PASSWORD"),
	)
}

// NewDelayScheduler wires the delay scheduler to Redis when an address is
// given. Without Redis, long delays degrade to a logged no-op.
func NewDelayScheduler(ctx context.Context, logger *slog.Logger, redisAddr string) (*queue.Scheduler, *queue.RedisQueue) {
	if redisAddr == "" {
		return queue.NewScheduler(nil, logger), nil
	}

	db := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil {
			db = parsed
		}
	}

	redisQueue, err := queue.NewRedisQueue(ctx, logger, redisAddr, os.Getenv("REDIS_PASSWORD"), db)
	if err != nil {
		panic(fmt.Errorf("failed to connect to redis: %w", err))
	}

	return queue.NewScheduler(redisQueue, logger), redisQueue
}
