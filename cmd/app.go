package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jjenkins/lawtrack/internal/config"
	"github.com/jjenkins/lawtrack/internal/logger"
	"github.com/jjenkins/lawtrack/internal/store"
	"go.uber.org/zap"
)

// setup loads the configuration and builds the logger every command uses
func setup() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return cfg, log, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(log *zap.SugaredLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Info("Received interrupt signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// openDB connects to the configured database
func openDB(cfg *config.Config, log *zap.SugaredLogger) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable or database.url is required")
	}

	log.Info("Connecting to database...")
	db, err := store.NewDB(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
