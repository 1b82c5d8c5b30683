package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitezone/internal/config"
	"github.com/conneroisu/sitezone/internal/metrics"
	"github.com/conneroisu/sitezone/internal/server"
)

var serveFlags *StandardFlags

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the site server",
	Long: `Start the HTTP site server.

Pages are fetched from the CMS fetch API, or from a local content tree when
--content-dir is set. With --watch, edits to that tree flush the content
cache and reload every open preview tab.

Examples:
  sitezone serve
  sitezone serve -p 8080 --environment development
  sitezone serve --content-dir ./content --watch
  sitezone serve --cache redis`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := serveFlags.ValidateFlags(); err != nil {
			return err
		}
		return BindConfigFlags(cmd)
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveFlags = AddStandardFlags(serveCmd, "server", "content")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, server.Options{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving sitezone at http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)

	startErr := srv.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, err, "Error during server shutdown")
	}

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		return startErr
	}
	return nil
}
