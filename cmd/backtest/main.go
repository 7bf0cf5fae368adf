package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ranbysal/Slim4/config"
	"github.com/ranbysal/Slim4/internal/adapters/report"
	"github.com/ranbysal/Slim4/internal/adapters/storage"
	"github.com/ranbysal/Slim4/internal/application/backtest"
	"github.com/ranbysal/Slim4/internal/application/sweep"
	"github.com/ranbysal/Slim4/internal/domain"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	dbPath := flag.String("db", "", "path to the collector sqlite database")
	gridJSON := flag.String("grid", "", `parameter grid as JSON, e.g. {"ENTRY_MIN_SCORE":[55,60,65]}`)
	startDay := flag.String("start", "", "window start, YYYY-MM-DD (UTC)")
	endDay := flag.String("end", "", "window end, YYYY-MM-DD (UTC)")
	origin := flag.String("origin", "", "launchpad origin to replay (overrides config)")
	tp := flag.Float64("tp", 0, "take-profit fraction (overrides config)")
	sl := flag.Float64("sl", 0, "stop-loss fraction (overrides config)")
	tmaxSec := flag.Int64("tmax-sec", 0, "max hold seconds before forced exit (overrides config)")
	sizeSmall := flag.Float64("size-small-sol", 0, "SMALL entry size in SOL (overrides config)")
	sizeApex := flag.Float64("size-apex-sol", 0, "APEX entry size in SOL (overrides config)")
	minTrades := flag.Int("min-trades", -1, "min trades for a combo to be feasible (overrides config)")
	maxDDCap := flag.Float64("max-dd-cap", 0, "max drawdown for a combo to be feasible (overrides config)")
	outDir := flag.String("out", "", "output directory for reports (overrides config)")
	workers := flag.Int("workers", 0, "sweep worker goroutines, 0 = auto")
	table := flag.Bool("table", false, "print ranked table of top combos")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}
	if *origin != "" {
		cfg.DB.Origin = *origin
	}
	if *tp > 0 {
		cfg.Trade.TakeProfit = *tp
	}
	if *sl > 0 {
		cfg.Trade.StopLoss = *sl
	}
	if *tmaxSec > 0 {
		cfg.Trade.MaxHoldSec = *tmaxSec
	}
	if *sizeSmall > 0 {
		cfg.Trade.SizeSmallSOL = *sizeSmall
	}
	if *sizeApex > 0 {
		cfg.Trade.SizeApexSOL = *sizeApex
	}
	if *minTrades >= 0 {
		cfg.Sweep.MinTrades = *minTrades
	}
	if *maxDDCap > 0 {
		cfg.Sweep.MaxDrawdownCap = *maxDDCap
	}
	if *workers > 0 {
		cfg.Sweep.Workers = *workers
	}
	if *outDir != "" {
		cfg.Report.OutDir = *outDir
	}
	if *table {
		cfg.Report.Table = true
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if cfg.DB.Path == "" {
		slog.Error("no database path; pass --db or set db.path in config")
		os.Exit(1)
	}
	if *gridJSON == "" {
		slog.Error("no parameter grid; pass --grid with a JSON object")
		os.Exit(1)
	}

	grid, fixed, err := sweep.ParseGrid([]byte(*gridJSON))
	if err != nil {
		slog.Error("invalid grid", "err", err)
		os.Exit(1)
	}

	startTS, err := parseDate(*startDay)
	if err != nil {
		slog.Error("invalid --start", "err", err)
		os.Exit(1)
	}
	endTS, err := parseDate(*endDay)
	if err != nil {
		slog.Error("invalid --end", "err", err)
		os.Exit(1)
	}

	slog.Info("backtester starting",
		"config", *configPath,
		"db", cfg.DB.Path,
		"origin", cfg.DB.Origin,
		"out", cfg.Report.OutDir,
		"formats", cfg.Report.Formats,
	)

	store, err := storage.NewSQLiteHistory(cfg.DB.Path, cfg.DB.Origin)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "path", cfg.DB.Path)
		os.Exit(1)
	}
	defer store.Close()

	runCfg := backtest.Config{
		Origin:  cfg.DB.Origin,
		StartTS: startTS,
		EndTS:   endTS,
		Grid:    grid,
		Base:    domain.DefaultParams().Merge(fixed),
		Settings: domain.TradeSettings{
			TakeProfit:   cfg.Trade.TakeProfit,
			StopLoss:     cfg.Trade.StopLoss,
			MaxHoldSec:   cfg.Trade.MaxHoldSec,
			SizeSmallSOL: cfg.Trade.SizeSmallSOL,
			SizeApexSOL:  cfg.Trade.SizeApexSOL,
		},
		Sweep: sweep.Config{
			MinTrades:      cfg.Sweep.MinTrades,
			MaxDrawdownCap: cfg.Sweep.MaxDrawdownCap,
			Workers:        cfg.Sweep.Workers,
		},
	}

	runner := backtest.New(runCfg, store, store,
		report.NewFiles(cfg.Report.OutDir, cfg.FormatList()),
		report.NewConsole(cfg.Report.Table),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := runner.Run(ctx); err != nil {
		slog.Error("backtest exited with error", "err", err)
		os.Exit(1)
	}
}

// parseDate interpreta YYYY-MM-DD como medianoche UTC y devuelve unix
// seconds. Vacío devuelve 0 (ventana sin acotar).
func parseDate(day string) (int64, error) {
	if day == "" {
		return 0, nil
	}
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return 0, fmt.Errorf("date %q is not YYYY-MM-DD: %w", day, err)
	}
	return t.Unix(), nil
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
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
