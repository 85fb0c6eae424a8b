package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shiftcal/internal/convert"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/web"
	"shiftcal/internal/workspace"
)

const shutdownTimeout = 30 * time.Second

var (
	serveListen     string
	serveConcurrent int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload page and conversion API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
	serveCmd.Flags().IntVar(&serveConcurrent, "max-concurrent", convert.DefaultMaxConcurrent, "conversions processed at the same time")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveListen != "" {
		cfg.Listen = serveListen
	}

	conv, err := newConverter(cfg, "")
	if err != nil {
		return err
	}
	limiter := convert.NewLimiter(serveConcurrent, convert.DefaultMaxWait)

	if err := os.MkdirAll(cfg.WorkDir, 0o700); err != nil {
		return err
	}
	janitor, err := workspace.NewJanitor(cfg.WorkDir, cfg.WorkspaceTTL, cfg.Janitor)
	if err != nil {
		return err
	}
	// Workspaces left by a previous crash.
	if n, err := janitor.Sweep(); err != nil {
		appLog.Warn("initial workspace sweep failed", "error", err.Error())
	} else if n > 0 {
		appLog.Info("removed stale workspaces", "count", n)
	}
	janitor.Start()

	appLog.Info("shiftcal starting",
		"version", version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"transformer", cfg.Transformer,
		"work_dir", cfg.WorkDir,
		"rate_limit", cfg.RateLimit,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(cfg, conv, limiter)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); err == nil {
		err = serr
	}
	janitor.Stop(shutdownCtx)
	if err != nil {
		return err
	}
	appLog.Info("shiftcal exiting")
	return nil
}
