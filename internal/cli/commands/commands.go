// Package commands implements the Shelfline CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/northstack-labs/shelfline/internal/adapter"
	"github.com/northstack-labs/shelfline/internal/cli/config"
	"github.com/northstack-labs/shelfline/internal/state"
)

type runtimeKey struct{}

// runtime carries the loaded config and logger through the command context.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
}

// WithRuntime stores the config and logger in the context.
func WithRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, runtimeKey{}, &runtime{cfg: cfg, logger: logger})
}

// getRuntime retrieves the config and logger from the command context.
func getRuntime(ctx context.Context) (*config.Config, *slog.Logger) {
	if rt, ok := ctx.Value(runtimeKey{}).(*runtime); ok {
		return rt.cfg, rt.logger
	}
	return &config.Config{
		DataDir:      config.DefaultDataDir,
		ExportDir:    config.DefaultExportDir,
		DatabasePath: config.DefaultDatabasePath,
		StatePath:    config.DefaultStateFile,
		Environment:  config.DefaultEnv,
		Anchor:       config.DefaultAnchor,
		AdapterType:  config.DefaultAdapterType,
	}, slog.New(slog.DiscardHandler)
}

// openWarehouse connects the configured warehouse adapter.
func openWarehouse(ctx context.Context, cfg *config.Config) (adapter.Adapter, error) {
	adapterCfg := adapter.Config{Type: cfg.AdapterType, Path: cfg.DatabasePath}

	if cfg.DatabasePath != "" {
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := adapter.New(adapterCfg)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx, adapterCfg); err != nil {
		return nil, err
	}
	return db, nil
}

// openStore opens and migrates the run state store.
func openStore(cfg *config.Config, logger *slog.Logger) (state.Store, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
