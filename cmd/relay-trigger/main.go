// Package main provides the relay-trigger CLI for firing and inspecting
// workflow triggers.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/siteforge/relay/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "relay-trigger",
		Usage:                 "Fire workflow triggers and inspect trigger wiring",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "fire",
				Aliases: []string{"f"},
				Usage:   "Publish a trigger event for the workers to pick up",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "site-id",
						Usage:    "Site the trigger fires for",
						Required: true,
						Sources:  cli.EnvVars("SITE_ID"),
					},
					&cli.StringFlag{
						Name:     "trigger-type",
						Usage:    "Trigger type to fire (e.g. form_submitted)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "data",
						Usage: "Trigger data as a JSON object",
						Value: "{}",
					},
					&cli.StringFlag{
						Name:    "event-bus",
						Usage:   "Event bus type (kafka, gochannel)",
						Value:   "kafka",
						Sources: cli.EnvVars("EVENT_BUS_TYPE"),
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					return FireTrigger(ctx, command)
				},
			},
			{
				Name:    "run",
				Aliases: []string{"r"},
				Usage:   "Execute matching workflows synchronously, without the bus",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "site-id",
						Usage:    "Site the trigger fires for",
						Required: true,
						Sources:  cli.EnvVars("SITE_ID"),
					},
					&cli.StringFlag{
						Name:     "trigger-type",
						Usage:    "Trigger type to fire (e.g. form_submitted)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "data",
						Usage: "Trigger data as a JSON object",
						Value: "{}",
					},
					&cli.StringFlag{
						Name:     "database-url",
						Usage:    "Database connection URL for persistence",
						Required: true,
						Sources:  cli.EnvVars("DATABASE_URL"),
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					return RunTrigger(ctx, command)
				},
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the workflows of a site and their triggers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "site-id",
						Usage:    "Site to list workflows for",
						Required: true,
						Sources:  cli.EnvVars("SITE_ID"),
					},
					&cli.StringFlag{
						Name:     "database-url",
						Usage:    "Database connection URL for persistence",
						Required: true,
						Sources:  cli.EnvVars("DATABASE_URL"),
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					return ListTriggers(ctx, command)
				},
			},
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
