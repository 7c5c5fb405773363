package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/zulandar/cockpit/internal/config"
	"github.com/zulandar/cockpit/internal/db"
)

// connectFromConfig loads the config file and opens the configured database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database.Driver, dsnFor(cfg.Database))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s database: %w", cfg.Database.Driver, err)
	}
	return cfg, gormDB, nil
}

// dsnFor returns the explicit DSN or assembles a MySQL one from its parts.
func dsnFor(d config.DatabaseConfig) string {
	if d.DSN != "" || d.Driver != db.DriverMySQL {
		return d.DSN
	}
	return db.DSN(d.User, d.Password, d.Host, d.Port, d.Name)
}

// newLogger builds the process logger from the log section.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
