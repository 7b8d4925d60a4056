package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/csdlc"
	httpAdapter "github.com/aretw0/csdlc/internal/adapters/http"
	"github.com/aretw0/csdlc/internal/metrics"
	"github.com/aretw0/csdlc/internal/presentation/tui"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP validation server",
	Long: `Serves the validator as a JSON API. Inline documents can always be
posted to /validate; the file, directory and graph endpoints only read
below --root. Prometheus metrics are exposed on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("root", "", "Directory the path-based endpoints may read (disabled when empty)")
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetString("port")
	root, _ := cmd.Flags().GetString("root")

	m := metrics.New()
	c, logger, err := newCompiler(cmd, csdlc.WithMetrics(m))
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Ping(ctx); err != nil {
		return err
	}

	opts := []httpAdapter.Option{
		httpAdapter.WithMetrics(m.Handler(), m.Middleware),
		httpAdapter.WithLogger(logger.With("component", "http")),
	}
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("invalid root: %w", err)
		}
		opts = append(opts, httpAdapter.WithRoot(abs))
		root = abs
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpAdapter.NewHandler(c.Validator, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if tui.IsTerminal(os.Stderr) {
		tui.PrintBanner(os.Stderr, csdlc.Version)
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting csdlc server", "address", srv.Addr, "root", root)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		logger.Info("shutting down", "timeout", shutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("csdlc server stopped")
		return nil
	}
}
