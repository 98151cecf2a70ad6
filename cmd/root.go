package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/agentic-research/dashlens/internal/cache"
	"github.com/agentic-research/dashlens/internal/config"
	"github.com/agentic-research/dashlens/internal/fetch"
	"github.com/agentic-research/dashlens/internal/ingest"
	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to dashlens.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

var rootCmd = &cobra.Command{
	Use:           "dashlens",
	Short:         "Dashlens: field discovery and formatting for JSON API dashboards",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and builds the logger it describes.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

// loadDocument reads a file, URL or stdin for the one-shot commands. URL
// fetches bypass the cache.
func loadDocument(ctx context.Context, in io.Reader, loc, selector string, headerPairs []string) (jsonval.Value, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return jsonval.Value{}, err
	}
	defer func() { _ = logger.Sync() }()

	headers, err := ingest.ParseHeaders(headerPairs)
	if err != nil {
		return jsonval.Value{}, err
	}
	f := fetch.NewFromConfig(cfg, cache.Nop{}, logger, prometheus.NewRegistry())
	return ingest.Load(ctx, ingest.Source{Location: loc, Headers: headers, Select: selector}, f, in)
}
