package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/adestefa/ccmem/internal/config"
	"github.com/adestefa/ccmem/internal/dashboard"
	"github.com/adestefa/ccmem/internal/metrics"
	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/server"
	"github.com/adestefa/ccmem/internal/store"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand runs the MCP server on stdio, optionally with the
// dashboard alongside.
func NewServeCommand(root *RootOptions) *cobra.Command {
	var withDashboard bool
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, log, err := root.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if addr != "" {
				cfg.DashboardAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			wd, _ := os.Getwd()
			srv := server.New(cfg, s, server.Options{Metrics: m, Dashboard: withDashboard, ProjectDir: wd})

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				// The client closing stdin ends the session, dashboard included.
				defer cancel()
				return serveStdio(ctx, srv, log)
			})
			if withDashboard {
				g.Go(func() error {
					return serveHTTP(ctx, newDashboard(cfg, s, m, wd), cfg.DashboardAddr, log)
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&withDashboard, "dashboard", false, "also serve the HTTP dashboard")
	cmd.Flags().StringVar(&addr, "addr", "", "dashboard listen address (default from config)")
	return cmd
}

// NewDashboardCommand serves the dashboard without the MCP transport.
func NewDashboardCommand(root *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the HTTP dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, log, err := root.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if addr != "" {
				cfg.DashboardAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			wd, _ := os.Getwd()
			h := newDashboard(cfg, s, metrics.New(), wd)
			fmt.Fprintf(cmd.ErrOrStderr(), "ccmem dashboard on %s\n", cfg.DashboardURL())
			return serveHTTP(ctx, h, cfg.DashboardAddr, log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newDashboard(cfg config.Config, s *store.Store, m *metrics.Metrics, projectDir string) http.Handler {
	return dashboard.New(s, risk.New(risk.FromStore(s)), m, dashboard.Options{
		BasePath: cfg.BasePath,
		Project:  filepath.Base(projectDir),
		Version:  server.Version,
	})
}

// serveStdio runs the MCP transport until the client hangs up or ctx is
// cancelled. Only protocol frames go to stdout.
func serveStdio(ctx context.Context, srv *mcpserver.MCPServer, logger *slog.Logger) error {
	stdio := mcpserver.NewStdioServer(srv)
	stdio.SetErrorLogger(log.New(os.Stderr, "mcp: ", log.LstdFlags))
	logger.Info("mcp server listening on stdio", "version", server.Version)
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

// serveHTTP runs h on addr and shuts it down gracefully when ctx ends.
func serveHTTP(ctx context.Context, h http.Handler, addr string, logger *slog.Logger) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", "addr", addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	logger.Info("dashboard stopped")
	return nil
}
