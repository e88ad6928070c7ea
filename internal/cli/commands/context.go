// Package commands implements the leapsheet subcommands.
package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/compiler"
	"github.com/leapstack-labs/leapsheet/internal/config"
	"github.com/leapstack-labs/leapsheet/internal/state"
)

// Context keys set by the root command.
type (
	ConfigKey   struct{}
	RendererKey struct{}
	LoggerKey   struct{}
)

// GetConfig retrieves the pipeline config from the command context.
func GetConfig(ctx context.Context) config.Config {
	if c, ok := ctx.Value(ConfigKey{}).(config.Config); ok {
		return c
	}
	return config.Default()
}

// GetRenderer retrieves the renderer from the command context.
func GetRenderer(ctx context.Context) *output.Renderer {
	if r, ok := ctx.Value(RendererKey{}).(*output.Renderer); ok {
		return r
	}
	return output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// newCompiler builds a compiler from the command context, opening the
// run-history store when one is configured. The returned cleanup
// closes the store.
func newCompiler(cmd *cobra.Command) (*compiler.Compiler, func(), error) {
	cfg := GetConfig(cmd.Context())
	logger := GetLogger(cmd.Context())

	var store *state.Store
	cleanup := func() {}
	if cfg.StatePath != "" {
		if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, nil, err
			}
		}
		var err error
		store, err = state.Open(cfg.StatePath, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { store.Close() }
	}

	c := compiler.New(compiler.Config{
		Pipeline: cfg,
		Logger:   logger,
		Store:    store,
	})
	return c, cleanup, nil
}
