package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brainnova/brainnova-score/internal/config"
	"github.com/brainnova/brainnova-score/internal/store"
)

var (
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "brainnova-score",
	Short:         "Brainnova Score aggregation service",
	Long:          "Resolves the Brainnova composite index from a remote scoring service, recomputing it from the indicator tables when the remote cannot answer.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c
		logger = newLogger(cfg)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.AddCommand(serveCmd, scoreCmd, snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(c *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if c.Logging.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// openStore connects to the backend selected by database.driver.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Database.Driver {
	case config.DriverSQLite:
		s, err := store.NewSQLite(c.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		s, err := store.NewPostgresStore(ctx, c.Database.URL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
