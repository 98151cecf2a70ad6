package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/agentic-research/dashlens/internal/cache"
	"github.com/agentic-research/dashlens/internal/dashboard"
	"github.com/agentic-research/dashlens/internal/fetch"
	"github.com/agentic-research/dashlens/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr      string
	serveDashboard string
)

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVarP(&serveDashboard, "dashboard", "d", "", "Dashboard file loaded at startup and saved on shutdown")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API with background refresh",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if serveDashboard != "" {
			cfg.Server.Dashboard = serveDashboard
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := cache.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		logger.Info("fetch cache ready", zap.String("backend", cfg.Cache.Backend), zap.Duration("ttl", cfg.GetCacheTTL()))

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		m := dashboard.NewManager(dashboard.Options{
			Fetcher: fetch.NewFromConfig(cfg, c, logger, reg),
			Logger:  logger,
		})
		if err := loadDashboard(m, cfg.Server.Dashboard); err != nil {
			return err
		}
		m.Start(ctx)

		srv := server.New(server.Options{Manager: m, Logger: logger, Registry: reg})
		return srv.Run(ctx, cfg.Server.Addr, cfg.GetShutdownTimeout(),
			func(context.Context) error {
				m.Stop()
				return nil
			},
			func(context.Context) error {
				return saveDashboard(m, cfg.Server.Dashboard)
			},
		)
	},
}

// loadDashboard imports path into m. A missing file is not an error.
func loadDashboard(m *dashboard.Manager, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read dashboard: %w", err)
	}
	if err := m.Import(data); err != nil {
		return fmt.Errorf("load dashboard %s: %w", path, err)
	}
	return nil
}

// saveDashboard writes m's export to path through a temp file.
func saveDashboard(m *dashboard.Manager, path string) error {
	if path == "" {
		return nil
	}
	data, err := m.Export()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dashboard-*.json")
	if err != nil {
		return fmt.Errorf("save dashboard: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("save dashboard: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("save dashboard: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("save dashboard: %w", err)
	}
	return nil
}
