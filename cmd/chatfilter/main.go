package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"chatfilter/internal/classifier"
	"chatfilter/internal/config"
	"chatfilter/internal/loader"
	"chatfilter/internal/metrics"
	"chatfilter/internal/report"
	"chatfilter/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
	metricsOut string
)

func main() {
	logger = newLogger("info")

	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "chatfilter",
		Short:        "Filter heuristic spam out of a chat message archive",
		Long:         "chatfilter loads chat messages from a relational store (cached as a local snapshot), flags spam with length, newline and repetition rules, and prints a summary.",
		Version:      version,
		SilenceUsage: true,
		RunE:         runAnalyze,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file, .yaml or .json (default: data/chatfilter.yaml)")
	root.PersistentFlags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus text metrics to this file")

	root.AddCommand(analyzeCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(emojisCmd())
	root.AddCommand(bpeCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())
	return root
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// setup loads the config and reconfigures the logger from it. A missing
// default config file is not an error; an explicit --config must exist.
func setup() (*config.Config, string, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if configPath != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, cfgPath, fmt.Errorf("load config: %w", err)
		}
		logger.Debug("config not found, using defaults", "path", cfgPath)
		cfg = config.Defaults()
	}
	logger = newLogger(cfg.General.LogLevel)
	return cfg, cfgPath, nil
}

func newLoader(cfg *config.Config, log *slog.Logger) *loader.Loader {
	return loader.New(loader.Config{
		Source: store.Source{
			Driver: cfg.Store.Driver,
			DSN:    cfg.Store.DSN,
			Logger: log,
		},
		SnapshotPath: cfg.Snapshot.Path,
		Logger:       log,
	})
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Load messages, classify them and print a summary (default)",
		RunE:  runAnalyze,
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.With("run_id", uuid.NewString())

	msgs, origin, err := newLoader(cfg, log).Load(ctx)
	if err != nil {
		return err
	}

	rep := report.Build(msgs, classifier.New(cfg.Filter.Thresholds()), cfg.Report.Options())
	recordMetrics(rep)
	log.Info("classified messages",
		"origin", origin,
		"total", rep.Original,
		"clean", rep.CleanCount(),
		"removed", len(rep.Partition.Removed),
	)

	if err := rep.Write(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if metricsOut != "" {
		if err := writeMetrics(metricsOut); err != nil {
			return err
		}
		log.Info("metrics written", "path", metricsOut)
	}
	return nil
}

func recordMetrics(rep *report.Report) {
	metrics.MessagesTotal.Add(int64(rep.Original))
	metrics.CleanTotal.Add(int64(rep.CleanCount()))
	for _, rule := range classifier.SpamRules {
		metrics.RemovedTotal(string(rule)).Add(int64(rep.ByRule[rule]))
	}
	for _, group := range [][]classifier.Labeled{rep.Partition.Clean, rep.Partition.Removed} {
		for _, l := range group {
			metrics.ContentLength.Observe(float64(utf8.RuneCountInString(l.Message.Content)))
		}
	}
}

func writeMetrics(path string) error {
	if err := writeFile(path, metrics.Collector.WriteText); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
