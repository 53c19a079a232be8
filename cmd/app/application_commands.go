package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/eventhub/cmd/app/commands"
	"github.com/allisson/eventhub/internal/app"
	"github.com/allisson/eventhub/internal/config"
)

func getApplicationCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-app",
			Usage: "Register an application and print its API key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Human-readable application name",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				appUseCase, err := container.ApplicationUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateApp(
					ctx,
					appUseCase,
					container.Logger(),
					cmd.String("name"),
					cmd.String("format"),
					commands.DefaultIO(),
				)
			},
		},
		{
			Name:  "update-app-status",
			Usage: "Activate or suspend an application",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Application ID (UUID)",
				},
				&cli.StringFlag{
					Name:     "status",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "New status: 'active' or 'suspended'",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				appUseCase, err := container.ApplicationUseCase()
				if err != nil {
					return err
				}

				return commands.RunUpdateAppStatus(
					ctx,
					appUseCase,
					container.Logger(),
					cmd.String("id"),
					cmd.String("status"),
					cmd.String("format"),
					commands.DefaultIO(),
				)
			},
		},
	}
}
