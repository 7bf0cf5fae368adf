package sweep

// sweep.go — barrido de parámetros sobre el simulador.
//
// Cada combinación del grid corre una simulación completa e independiente,
// así que el barrido escala lineal con los cores: un grid de 200 combos
// pasa de minutos (secuencial) a segundos con el pool de workers.

import (
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ranbysal/Slim4/internal/application/simulator"
	"github.com/ranbysal/Slim4/internal/domain"
)

// Config son las restricciones de factibilidad y el paralelismo del barrido.
type Config struct {
	MinTrades      int     // mínimo de trades cerrados para aceptar una fila
	MaxDrawdownCap float64 // drawdown máximo tolerado (fracción)
	Workers        int     // workers del pool; <= 0 usa runtime.NumCPU()×2
}

// Run evalúa todas las combinaciones del grid fusionadas sobre los
// parámetros base y devuelve las filas en orden de enumeración junto con
// la mejor. Los workers consumen combinaciones generadas bajo demanda; el
// resultado es determinista porque las filas se reordenan por índice y la
// selección recorre ese orden.
func Run(
	sim *simulator.Simulator,
	events map[string][]domain.Snapshot,
	grid Grid,
	base domain.Params,
	settings domain.TradeSettings,
	cfg Config,
) domain.SweepResult {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	combos := grid.Combos()
	total := combos.Total()

	type work struct {
		idx    int
		params domain.Params
	}
	type result struct {
		idx int
		row domain.SweepRow
	}

	workCh := make(chan work, workers)
	resultCh := make(chan result, workers)

	// Worker pool: cada worker simula combinaciones de workCh y publica la
	// fila resultante en resultCh.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				metrics := sim.Run(events, w.params, settings)
				resultCh <- result{idx: w.idx, row: domain.SweepRow{Params: w.params, Metrics: metrics}}
			}
		}()
	}

	// Generación perezosa: el odómetro produce cada combinación justo antes
	// de encolarla, sin materializar el producto completo en memoria.
	go func() {
		idx := 0
		for {
			override, ok := combos.Next()
			if !ok {
				break
			}
			workCh <- work{idx: idx, params: base.Merge(override)}
			idx++
		}
		close(workCh)
	}()

	// Cerrar resultCh cuando todos los workers terminen.
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	rows := make([]domain.SweepRow, total)
	progress := rate.Sometimes{First: 1, Interval: 2 * time.Second}
	completed := 0
	for res := range resultCh {
		rows[res.idx] = res.row
		completed++
		progress.Do(func() {
			slog.Info("sweep progress",
				"done", completed,
				"total", total,
			)
		})
	}

	out := domain.SweepResult{Rows: rows}
	out.Best, out.BestFeasible = selectBest(rows, cfg)

	slog.Debug("sweep complete",
		"combos", total,
		"workers", workers,
		"feasible_best", out.BestFeasible,
	)
	return out
}

// selectBest recorre las filas en orden de enumeración y elige la de mayor
// pnl total que cumpla las restricciones. Si ninguna cumple cae a la mejor
// sin restricciones, de modo que con al menos una fila siempre hay mejor.
// Los empates los gana la primera fila encontrada (comparación estricta).
func selectBest(rows []domain.SweepRow, cfg Config) (*domain.SweepRow, bool) {
	if len(rows) == 0 {
		return nil, false
	}

	var feasible, fallback *domain.SweepRow
	feasibleBest := math.Inf(-1)
	fallbackBest := math.Inf(-1)

	for i := range rows {
		row := &rows[i]
		pnl := row.Metrics.TotalPnLSOL
		if pnl > fallbackBest {
			fallback = row
			fallbackBest = pnl
		}
		if row.Metrics.Trades < cfg.MinTrades || row.Metrics.MaxDrawdown > cfg.MaxDrawdownCap {
			continue
		}
		if pnl > feasibleBest {
			feasible = row
			feasibleBest = pnl
		}
	}

	if feasible != nil {
		return feasible, true
	}
	return fallback, false
}
