package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zulandar/devteam/internal/config"
	"github.com/zulandar/devteam/internal/dashboard"
	"github.com/zulandar/devteam/internal/notify"
	"github.com/zulandar/devteam/internal/notify/discord"
	"github.com/zulandar/devteam/internal/notify/slack"
	"github.com/zulandar/devteam/internal/team"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		Long: "Launches the web dashboard with in-memory clients and projects. State is\n" +
			"seeded on start (unless seed: false) and lost on exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to devteam config file (defaults when empty)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)

	svc := team.New(team.OptionsFromConfig(cfg, logger))
	defer svc.Close()
	if cfg.Seed {
		if err := svc.Seed(); err != nil {
			return err
		}
	}
	svc.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Notify.Platform != config.PlatformNone {
		adapter, err := createAdapter(cfg, logger)
		if err != nil {
			return err
		}
		dispatcher, err := notify.NewDispatcher(notify.DispatcherOpts{
			Bus:     svc.Bus(),
			Adapter: adapter,
			Events:  cfg.Notify.Events,
			Logger:  logger,
			Digest:  cfg.Notify.Digest,
			Source:  svc,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := dispatcher.Run(ctx); err != nil {
				logger.Error("notifications stopped", "platform", adapter.Name(), "error", err)
			}
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "Relaying events to %s\n", adapter.Name())
	}

	return dashboard.Start(ctx, dashboard.StartOpts{
		Service: svc,
		Port:    cfg.Server.Port,
		Out:     cmd.OutOrStdout(),
		Logger:  logger,
	})
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// createAdapter builds a notification adapter from the config.
func createAdapter(cfg *config.Config, logger *slog.Logger) (notify.Adapter, error) {
	switch cfg.Notify.Platform {
	case config.PlatformSlack:
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.PlatformDiscord:
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("notify: unsupported platform %q", cfg.Notify.Platform)
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
