package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/siteforge/relay/pkg/cmd"
	"github.com/siteforge/relay/pkg/events"
	"github.com/siteforge/relay/pkg/log"
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/workflow"
)

func parseTriggerArgs(command *cli.Command) (string, models.TriggerType, map[string]any, error) {
	siteID := command.String("site-id")

	triggerType := models.TriggerType(command.String("trigger-type"))
	if !triggerType.IsValid() {
		return "", "", nil, fmt.Errorf("unknown trigger type: %s", triggerType)
	}

	triggerData := map[string]any{}

	err := json.Unmarshal([]byte(command.String("data")), &triggerData)
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid trigger data: %w", err)
	}

	return siteID, triggerType, triggerData, nil
}

// FireTrigger publishes a WorkflowTriggered event on the bus and returns;
// a running worker picks it up.
func FireTrigger(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("relay-trigger")

	siteID, triggerType, triggerData, err := parseTriggerArgs(command)
	if err != nil {
		return err
	}

	eventBus := cmd.NewEventBus(command.String("event-bus"), "trigger", logger)
	defer func() {
		err := eventBus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	event := events.WorkflowTriggered{
		BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, siteID, ""),
		TriggerType: triggerType,
		TriggerData: triggerData,
	}

	err = eventBus.Publish(ctx, siteID, event)
	if err != nil {
		return fmt.Errorf("failed to publish trigger event: %w", err)
	}

	fmt.Printf("Published %s for site %s (event %s)\n", triggerType, siteID, event.ID)

	return nil
}

// RunTrigger executes every matching workflow in-process and prints the
// per-workflow outcome. Useful when developing workflows locally.
func RunTrigger(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("relay-trigger")

	siteID, triggerType, triggerData, err := parseTriggerArgs(command)
	if err != nil {
		return err
	}

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		err := persistence.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	scheduler, _ := cmd.NewDelayScheduler(ctx, logger, "")
	registry := cmd.NewRegistry(ctx, logger, "", cmd.ActionDependencies{
		Records:    persistence.Records(),
		Sender:     cmd.NewEmailSender(logger),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Scheduler:  scheduler,
	})

	repository := workflow.NewRepository(persistence)
	executor := workflow.NewExecutor(persistence.Executions(), registry, logger)
	triggerService := workflow.NewTriggerService(repository, executor, logger)

	report, err := triggerService.Run(ctx, siteID, triggerType, triggerData)
	if err != nil {
		return err
	}

	fmt.Printf("Executed %d workflow(s) for %s on site %s\n", report.ExecutedCount, triggerType, siteID)

	for _, execution := range report.Reports {
		status := "ok"
		if !execution.Success {
			status = "failed"
		}

		fmt.Printf("  workflow %s execution %s: %s (%d steps)\n", execution.WorkflowID, execution.ExecutionID, status, len(execution.Results))
	}

	return nil
}

// ListTriggers prints the workflows of a site with their trigger wiring.
func ListTriggers(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("relay-trigger")

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		err := persistence.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	workflows, err := workflow.NewRepository(persistence).FetchAll(ctx, command.String("site-id"))
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tTRIGGER\tACTIVE\tSTEPS")

	for _, wf := range workflows {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%t\t%d\n",
			wf.ID, wf.Name, wf.TriggerType, wf.Active, len(wf.Steps))
	}

	return writer.Flush()
}
