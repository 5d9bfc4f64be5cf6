// Package cmd provides the laurus CLI commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/laurus/engine"
	"github.com/Aman-CERP/laurus/internal/analyzer"
	"github.com/Aman-CERP/laurus/internal/config"
	"github.com/Aman-CERP/laurus/internal/logging"
	"github.com/Aman-CERP/laurus/storage"
)

var (
	dataDir   string
	debugMode bool
	logLevel  string
)

// NewRootCmd creates the root command for the laurus CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "laurus",
		Short: "Embeddable hybrid lexical/vector search",
		Long: `laurus is a hybrid search library combining BM25 lexical scoring
with vector similarity (flat/HNSW/IVF), fused by RRF or weighted sum.

This CLI exercises the library against a file-backed index rooted at
--data (default: ~/.laurus/data).`,
		PersistentPreRunE: setupLogging,
	}

	cmd.PersistentFlags().StringVar(&dataDir, "data", "", "index data directory (default: ~/.laurus/data)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.laurus/logs/")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the log level (debug, info, warn, error)")

	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCommitCmd())
	cmd.AddCommand(newStatsCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}
	cfg.WriteToStderr = debugMode
	if logLevel != "" {
		cfg.Level = logLevel
	}

	logger, _, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	slog.SetDefault(logger)
	slog.Debug("logging configured", "level", logging.LevelFromString(cfg.Level).String())
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// openEngine loads the configured schema and opens an Engine rooted at
// --data, the shared setup every subcommand needs.
func openEngine(ctx context.Context) (*engine.Engine, *config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.Storage.Dir = dataDir
	}
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	schema, err := cfg.Schema.ToSchema()
	if err != nil {
		return nil, nil, fmt.Errorf("build schema: %w", err)
	}

	st, err := storage.NewFileStorage(cfg.Storage.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	locker := storage.NewFileLocker(cfg.Storage.Dir)

	e, err := engine.Open(ctx, st, schema, uint16(cfg.Storage.Shard),
		engine.WithAnalyzer(analyzer.New(nil)),
		engine.WithLocker(locker),
		engine.WithIVFTrainSampleCap(cfg.Performance.IVFTrainSampleCap),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open engine: %w", err)
	}
	return e, cfg, nil
}
