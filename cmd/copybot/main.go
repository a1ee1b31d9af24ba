package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/copybot/config"
	"github.com/alejandrodnm/copybot/internal/adapters/feed"
	"github.com/alejandrodnm/copybot/internal/adapters/notify"
	"github.com/alejandrodnm/copybot/internal/adapters/storage"
	"github.com/alejandrodnm/copybot/internal/backtest"
	"github.com/alejandrodnm/copybot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	history := flag.Int("history", 0, "print the last N stored runs and exit")
	noStore := flag.Bool("no-store", false, "skip persisting the run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("copybot starting",
		"config", *configPath,
		"feed", cfg.Feed.Source,
		"start", cfg.Backtest.StartDate,
		"end", cfg.Backtest.EndDate,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := notify.NewConsole()

	var store *storage.SQLiteStore
	if !*noStore || *history > 0 {
		store, err = storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	if *history > 0 {
		printHistory(ctx, store, notifier, *history)
		return
	}

	engine := backtest.NewEngine(engineConfig(cfg), buildFeed(cfg))

	run, err := engine.Run(ctx)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	if err := notifier.PrintRun(run); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if store != nil {
		if err := store.SaveRun(ctx, run); err != nil {
			slog.Error("failed to save run", "err", err, "run", run.ID)
			os.Exit(1)
		}
		slog.Info("run saved", "run", run.ID, "dsn", cfg.Storage.DSN)
	}
}

// engineConfig mapea la config YAML (floats) a la config del engine
// (decimal). Las fechas ya están validadas por config.Load.
func engineConfig(cfg *config.Config) backtest.Config {
	start, end, _ := cfg.DateRange()

	return backtest.Config{
		StartDate:      start,
		EndDate:        end,
		InitialBalance: decimal.NewFromFloat(cfg.Backtest.InitialBalanceUSDC),
		ApplyFees:      cfg.Backtest.ApplyFees,
		FeeRateBps:     cfg.Backtest.FeeRateBps,
		Slippage: backtest.SlippageFromConfig(
			cfg.Backtest.SlippageModel,
			decimal.NewFromFloat(cfg.Backtest.DepthCoefficient),
			decimal.NewFromFloat(cfg.Backtest.SlippagePercentage),
		),
		Sizing: backtest.SizingPolicy{
			Strategy:    cfg.Sizing.Strategy,
			MaxAbsolute: decimal.NewFromFloat(cfg.Sizing.MaxAbsolute),
			MaxRelative: decimal.NewFromFloat(cfg.Sizing.MaxRelative),
			Priority:    cfg.Sizing.Priority,
		},
	}
}

func buildFeed(cfg *config.Config) ports.TradeFeed {
	if cfg.Feed.Source == "api" {
		return feed.NewDataAPIFeed(cfg.Feed.APIBase, cfg.Feed.Markets)
	}
	return feed.NewCSVFeed(cfg.Feed.File)
}

func printHistory(ctx context.Context, store *storage.SQLiteStore, notifier *notify.Console, limit int) {
	runs, err := store.GetRuns(ctx, limit)
	if err != nil {
		slog.Error("failed to load run history", "err", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		slog.Info("no stored runs")
		return
	}
	for _, run := range runs {
		closed, err := store.GetClosedPositions(ctx, run.ID)
		if err != nil {
			slog.Warn("failed to load closed positions", "run", run.ID, "err", err)
		}
		run.Closed = closed
		if err := notifier.PrintRun(run); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
