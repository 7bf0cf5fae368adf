// backtest.go — orquestador de una corrida completa de backtest.
//
// Carga el histórico, ejecuta el barrido de parámetros, entrega el
// resultado a los reporters y deja registrada la corrida. Toda la E/S
// pasa por ports, así que el flujo se puede probar con fakes.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ranbysal/Slim4/internal/application/simulator"
	"github.com/ranbysal/Slim4/internal/application/sweep"
	"github.com/ranbysal/Slim4/internal/domain"
	"github.com/ranbysal/Slim4/internal/ports"
)

// Config contiene todo lo que define una corrida: ventana, grid y settings.
type Config struct {
	Origin   string
	StartTS  int64 // unix seconds, 0 = sin límite
	EndTS    int64
	Grid     sweep.Grid
	Base     domain.Params
	Settings domain.TradeSettings
	Sweep    sweep.Config
}

// Runner ejecuta corridas de backtest con todas las dependencias inyectadas.
type Runner struct {
	cfg       Config
	history   ports.History
	runs      ports.RunStore
	reporters []ports.Reporter
}

// New crea un Runner. Los reporters se invocan en orden tras el barrido.
func New(cfg Config, history ports.History, runs ports.RunStore, reporters ...ports.Reporter) *Runner {
	return &Runner{
		cfg:       cfg,
		history:   history,
		runs:      runs,
		reporters: reporters,
	}
}

// Run ejecuta una corrida completa y devuelve su registro.
func (r *Runner) Run(ctx context.Context) (domain.SweepRun, error) {
	startedAt := time.Now().UTC()

	slog.Info("backtest starting",
		"origin", r.cfg.Origin,
		"start_ts", r.cfg.StartTS,
		"end_ts", r.cfg.EndTS,
		"combos", r.cfg.Grid.Combos().Total(),
	)

	events, err := r.history.LoadSnapshots(ctx, r.cfg.StartTS, r.cfg.EndTS)
	if err != nil {
		return domain.SweepRun{}, fmt.Errorf("backtest.Run: load snapshots: %w", err)
	}
	if len(events) == 0 {
		return domain.SweepRun{}, fmt.Errorf("backtest.Run: no snapshots in window; nothing to simulate")
	}

	sizes := []float64{r.cfg.Settings.SizeSmallSOL, r.cfg.Settings.SizeApexSOL}
	quotes, err := r.history.LoadQuotes(ctx, sizes)
	if err != nil {
		return domain.SweepRun{}, fmt.Errorf("backtest.Run: load quotes: %w", err)
	}
	if len(quotes) == 0 {
		return domain.SweepRun{}, fmt.Errorf("backtest.Run: no quotes for the configured order sizes; cannot simulate fills")
	}

	snapshots, quoteRows := 0, 0
	for _, snaps := range events {
		snapshots += len(snaps)
	}
	for _, qs := range quotes {
		quoteRows += len(qs)
	}
	slog.Info("history loaded",
		"mints", len(events),
		"snapshots", snapshots,
		"quote_rows", quoteRows,
	)

	sim := simulator.New(quotes)
	result := sweep.Run(sim, events, r.cfg.Grid, r.cfg.Base, r.cfg.Settings, r.cfg.Sweep)

	for _, reporter := range r.reporters {
		if err := reporter.Report(ctx, result); err != nil {
			return domain.SweepRun{}, fmt.Errorf("backtest.Run: report: %w", err)
		}
	}

	run := domain.SweepRun{
		ID:           uuid.NewString(),
		StartedAt:    startedAt,
		FinishedAt:   time.Now().UTC(),
		StartTS:      r.cfg.StartTS,
		EndTS:        r.cfg.EndTS,
		Origin:       r.cfg.Origin,
		Settings:     r.cfg.Settings,
		Mints:        len(events),
		Snapshots:    snapshots,
		QuoteRows:    quoteRows,
		Combos:       len(result.Rows),
		Best:         result.Best,
		BestFeasible: result.BestFeasible,
	}

	if r.runs != nil {
		if err := r.runs.SaveRun(ctx, run); err != nil {
			slog.Warn("run store error", "err", err)
		}
	}

	slog.Info("backtest complete",
		"run_id", run.ID,
		"combos", run.Combos,
		"feasible_best", run.BestFeasible,
		"duration", time.Since(startedAt).Round(time.Millisecond),
	)
	return run, nil
}
