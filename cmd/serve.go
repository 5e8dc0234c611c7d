package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Paramfpv/lev/internal/api"
	"github.com/Paramfpv/lev/internal/config"
	"github.com/Paramfpv/lev/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `serve starts the HTTP API: registration, login, chat, conversation
reset, and persisted history. Each registered user gets an isolated
conversation; anonymous requests share one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("closing database", "error", closeErr)
		}
	}()

	col, err := newCollection(ctx, cfg, logger)
	if err != nil {
		return err
	}
	completer, err := newCompleter(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := api.NewServer(api.ServerConfig{
		Logger:  logger,
		Engines: api.NewRegistry(newEngineFactory(cfg, col, completer, logger)),
		Store:   store,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx, cfg.Addr)
}
