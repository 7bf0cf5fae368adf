package simulator

// simulator.go — replay determinista de la historia grabada.
//
// Reglas de matching temporal:
//  1. Entrada: el quote más reciente con ts <= ts de la señal (búsqueda binaria
//     sobre el stream del tamaño elegido).
//  2. Salida: primer quote desde la entrada que cumpla tmax, take-profit o
//     stop-loss; los quotes con precio <= 0 se saltan sin consumir turno.
//  3. Sin salida válida: el último quote del stream cierra la posición a
//     precio de mercado; con precio 0 se cierra a precio de entrada (pnl 0).
//  4. Señal sin quote de entrada: se descarta sin tocar el estado del mint —
//     ni trade, ni cooldown.
//
// Los mints se recorren en orden alfabético para que la curva de equity
// agregada (y por tanto el max drawdown) sea reproducible run a run.

import (
	"math"
	"sort"

	"github.com/ranbysal/Slim4/internal/domain"
)

// Simulator reproduce snapshots contra quotes grabadas y agrega métricas.
// El índice de quotes se construye una vez y se comparte entre los runs
// del sweep; Run no muta el índice.
type Simulator struct {
	index map[string]map[float64]*quoteSeries // mint → size6 → stream
}

// quoteSeries es el stream de quotes de un (mint, tamaño), ordenado por ts.
type quoteSeries struct {
	quotes []domain.Quote
	times  []int64 // ts extraídos para búsqueda binaria
}

// New construye el simulador indexando los quotes por mint y tamaño.
// El tamaño se normaliza a 6 decimales para casar con los streams grabados.
func New(quotesByMint map[string][]domain.Quote) *Simulator {
	index := make(map[string]map[float64]*quoteSeries, len(quotesByMint))
	for mint, quotes := range quotesByMint {
		bySize := make(map[float64]*quoteSeries)
		for _, q := range quotes {
			key := roundSize(q.SizeSOL)
			series := bySize[key]
			if series == nil {
				series = &quoteSeries{}
				bySize[key] = series
			}
			series.quotes = append(series.quotes, q)
		}
		for _, series := range bySize {
			series.finish()
		}
		index[mint] = bySize
	}
	return &Simulator{index: index}
}

// Run simula todos los mints con los parámetros dados y devuelve las métricas
// agregadas. Es seguro llamarlo desde varias goroutines a la vez.
func (s *Simulator) Run(eventsByMint map[string][]domain.Snapshot, params domain.Params, settings domain.TradeSettings) domain.Metrics {
	metrics := domain.NewMetrics()
	var equity domain.EquityTracker

	cooldownSec := int64(params.Int(domain.ParamCooldownSec, 60))

	mints := make([]string, 0, len(eventsByMint))
	for mint := range eventsByMint {
		mints = append(mints, mint)
	}
	sort.Strings(mints)

	for _, mint := range mints {
		bySize := s.index[mint]
		if len(bySize) == 0 {
			continue // mint sin quotes: no hay nada que simular
		}

		state := domain.TradeState{}
		for _, snap := range eventsByMint[mint] {
			action := domain.Decide(state, snap, params)
			if action == domain.ActionNone {
				continue
			}

			size := roundSize(settings.SizeFor(action))
			series := bySize[size]
			if series == nil {
				continue
			}

			entryIdx, ok := series.entryAt(snap.TS)
			if !ok {
				continue // señal anterior a cualquier quote — descartada
			}
			entry := series.quotes[entryIdx]
			if entry.PriceSOL <= 0 {
				continue
			}

			exitTS, exitPx, ok := series.resolveExit(entryIdx, entry.TS, entry.PriceSOL, settings)
			if !ok {
				continue
			}

			pnl := size * (exitPx/entry.PriceSOL - 1.0)
			metrics.RecordTrade(pnl, snap.Origin, exitTS-entry.TS)
			equity.Record(pnl)

			state.InPosition = false
			state.CooldownUntil = exitTS + cooldownSec
		}
	}

	metrics.MaxDrawdown = equity.MaxDrawdown()
	return metrics
}

// finish ordena el stream por ts (orden estable: empates conservan el orden
// de carga) y extrae los timestamps para la búsqueda binaria.
func (qs *quoteSeries) finish() {
	sort.SliceStable(qs.quotes, func(i, j int) bool {
		return qs.quotes[i].TS < qs.quotes[j].TS
	})
	qs.times = make([]int64, len(qs.quotes))
	for i, q := range qs.quotes {
		qs.times[i] = q.TS
	}
}

// entryAt devuelve el índice del quote más reciente con ts <= ts de la señal.
func (qs *quoteSeries) entryAt(ts int64) (int, bool) {
	i := sort.Search(len(qs.times), func(i int) bool { return qs.times[i] > ts })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

// resolveExit escanea desde la entrada buscando la primera condición de
// salida. El límite de tiempo se evalúa antes que take-profit y stop-loss.
func (qs *quoteSeries) resolveExit(entryIdx int, entryTS int64, entryPx float64, settings domain.TradeSettings) (int64, float64, bool) {
	for j := entryIdx; j < len(qs.quotes); j++ {
		q := qs.quotes[j]
		px := q.PriceSOL
		if px <= 0 {
			continue
		}
		if q.TS-entryTS >= settings.MaxHoldSec {
			return q.TS, px, true
		}
		ret := (px - entryPx) / entryPx
		if ret >= settings.TakeProfit {
			return q.TS, px, true
		}
		if ret <= -settings.StopLoss {
			return q.TS, px, true
		}
	}

	// Cierre forzoso: último quote del stream, si queda a partir de la entrada.
	last := qs.quotes[len(qs.quotes)-1]
	if last.TS < entryTS {
		return 0, 0, false
	}
	px := last.PriceSOL
	if px == 0 {
		px = entryPx
	}
	return last.TS, px, true
}

// roundSize normaliza un tamaño de orden a 6 decimales.
func roundSize(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
