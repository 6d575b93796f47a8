// Command server runs the notes API.
//
// Configuration comes from the environment (and an optional .env file);
// see internal/config for the variables. JWT_SECRET is required.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/notes/internal/config"
	"github.com/sakif/notes/internal/logging"
	"github.com/sakif/notes/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return fmt.Errorf("creating database directory %s: %w", dbDir, err)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT or SIGTERM.
	return srv.Start()
}
