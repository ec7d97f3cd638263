package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaz8081/z407ctl/internal/ble"
	"github.com/chaz8081/z407ctl/internal/httpapi"
	"github.com/chaz8081/z407ctl/internal/remote"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the speaker and serve the HTTP control API",
	Long: `Find and connect to the speaker, then serve the control API and web page.

The HTTP server only starts once the speaker is connected. If the speaker
cannot be acquired within the configured attempts, serve exits with an error.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "HTTP listen address; overrides http.listen")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.HTTP.Listen, _ = cmd.Flags().GetString("listen")
	}
	printBanner(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := preflight(cfg); err != nil {
		return err
	}

	adapter := ble.NewTinyGoAdapter()
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	rem := remote.New(adapter, remoteOptions(cfg))
	defer func() {
		if err := rem.Shutdown(); err != nil {
			slog.Warn("[Z407] shutdown", "error", err)
		}
	}()

	if err := rem.Acquire(ctx); err != nil {
		return err
	}

	api := httpapi.New(rem)
	srv := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("[HTTP] listening", "addr", cfg.HTTP.Listen)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("[HTTP] shutdown", "error", err)
	}
	api.Close()
	return nil
}
