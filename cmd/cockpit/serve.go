package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zulandar/cockpit/internal/agentstore"
	"github.com/zulandar/cockpit/internal/auth"
	"github.com/zulandar/cockpit/internal/dashboard"
	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/insight"
	"github.com/zulandar/cockpit/internal/llm"
	"github.com/zulandar/cockpit/internal/ratelimit"
	"github.com/zulandar/cockpit/internal/snapshot"
	"github.com/zulandar/cockpit/internal/store"
	"github.com/zulandar/cockpit/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		Long:  "Serves the dashboard snapshot, task, habit, review and agent endpoints over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Cockpit config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if err := telemetry.Init(ctx, telemetry.Options{
		Enabled:         cfg.Telemetry.Enabled,
		Stdout:          cfg.Telemetry.Stdout,
		MetricsEndpoint: cfg.Telemetry.MetricsEndpoint,
	}, "cockpit", Version); err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer telemetry.Shutdown(context.Background())

	var client llm.Client
	if cfg.LLMEnabled() {
		client, err = llm.New(llm.Config{
			Provider: cfg.LLM.Provider,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
		})
		switch {
		case errors.Is(err, llm.ErrDisabled):
			client = nil
		case err != nil:
			return fmt.Errorf("configure llm: %w", err)
		}
	}
	if client == nil {
		logger.Info("insight generation uses rule-based fallback only")
	}

	clock := dates.NewClock(cfg.Location())
	st := store.New(gormDB, logger)
	builder := snapshot.NewBuilder(st, insight.New(client, cfg.LLMTimeout(), logger), clock, logger)
	snapshots := snapshot.NewService(builder, snapshot.NewCache(cfg.Cache.Size, cfg.CacheTTL()))

	limiter := ratelimit.New(cfg.RateWindow(), cfg.RateLimit.Limit)
	if err := limiter.StartSweeper(ctx, logger); err != nil {
		return fmt.Errorf("start rate limit sweeper: %w", err)
	}

	resolver := auth.NewResolver(gormDB, auth.Options{
		DefaultUserID: cfg.Auth.DefaultUserID,
		Production:    cfg.Production(),
		UserInfoURL:   cfg.Auth.UserInfoURL,
		APIKey:        cfg.Auth.APIKey,
		LinksTable:    cfg.Auth.LinksTable,
	})

	logger.Info("starting dashboard",
		"port", cfg.Server.Port,
		"timezone", cfg.Server.Timezone,
		"environment", cfg.Environment,
		"database", cfg.Database.Driver)

	return dashboard.Start(ctx, dashboard.StartOpts{
		Store:     st,
		Snapshots: snapshots,
		Agents:    agentstore.New(cfg.Agents.Dir),
		Auth:      resolver,
		Limiter:   limiter,
		Client: dashboard.ClientConfig{
			AuthURL:       cfg.Auth.ClientURL,
			AnonKey:       cfg.Auth.ClientKey,
			DefaultUserID: cfg.Auth.DefaultUserID,
			Timezone:      cfg.Server.Timezone,
			Environment:   cfg.Environment,
		},
		Logger: logger,
		Port:   cfg.Server.Port,
		Out:    cmd.OutOrStdout(),
	})
}
