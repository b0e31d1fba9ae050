package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/laguz/internal"
	pkgconfig "github.com/starford/laguz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func action(run func(context.Context, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := run(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "laguz",
		Usage: "Epidemiological data pipeline: retrieve daily case snapshots, load geography, render cumulative charts, and serve the geography API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "retrieve",
				Usage:  "Download static datasets and daily snapshot files into the data directory",
				Action: action(internal.Retrieve),
			},
			{
				Name:   "load",
				Usage:  "Populate the SQLite geography store from country datasets and boundary GeoJSON",
				Action: action(internal.Load),
			},
			{
				Name:   "render",
				Usage:  "Index daily snapshots and render cumulative chart frames and animations",
				Action: action(internal.Render),
			},
			{
				Name:   "watch",
				Usage:  "Watch the data directory and re-render when new snapshot files arrive",
				Action: action(internal.Watch),
			},
			{
				Name:   "serve",
				Usage:  "Serve the geography HTTP API",
				Action: action(internal.Serve),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
