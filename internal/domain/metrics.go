package domain

import (
	"math"
	"time"
)

// Metrics aggregates the outcome of one simulated run.
type Metrics struct {
	Trades      int
	Wins        int
	TotalPnLSOL float64
	PnLByOrigin map[string]float64
	MaxDrawdown float64
	HoldSecsSum int64
}

// NewMetrics returns an empty Metrics ready to accumulate trades.
func NewMetrics() Metrics {
	return Metrics{PnLByOrigin: make(map[string]float64)}
}

// RecordTrade folds one completed trade into the aggregates.
// Negative hold times (clock skew in recorded data) count as zero.
func (m *Metrics) RecordTrade(pnl float64, origin string, holdSecs int64) {
	m.Trades++
	if pnl > 0 {
		m.Wins++
	}
	m.TotalPnLSOL += pnl
	m.PnLByOrigin[origin] += pnl
	m.HoldSecsSum += max(holdSecs, 0)
}

// Winrate returns the fraction of winning trades, 0 when no trades closed.
func (m Metrics) Winrate() float64 {
	if m.Trades == 0 {
		return 0
	}
	return float64(m.Wins) / float64(m.Trades)
}

// AvgHoldSec returns the mean holding time in seconds, 0 when no trades closed.
func (m Metrics) AvgHoldSec() float64 {
	if m.Trades == 0 {
		return 0
	}
	return float64(m.HoldSecsSum) / float64(m.Trades)
}

// EquityTracker walks the aggregated equity curve and keeps the worst
// peak-to-trough drawdown. It only advances on trade completion; open
// positions are never marked to market.
type EquityTracker struct {
	equity float64
	peak   float64
	maxDD  float64
}

// Record applies one realized pnl to the curve and returns the drawdown
// after the update. Drawdown is 0 while the curve has never been positive.
func (e *EquityTracker) Record(pnl float64) float64 {
	e.equity += pnl
	if e.equity > e.peak {
		e.peak = e.equity
	}
	dd := 0.0
	if e.peak > 0 {
		dd = (e.peak - e.equity) / math.Max(1e-12, math.Abs(e.peak))
	}
	if dd > e.maxDD {
		e.maxDD = dd
	}
	return dd
}

// Equity returns the cumulative realized pnl.
func (e *EquityTracker) Equity() float64 { return e.equity }

// MaxDrawdown returns the worst drawdown seen so far.
func (e *EquityTracker) MaxDrawdown() float64 { return e.maxDD }

// SweepRow is the outcome of one parameter combination in a sweep.
type SweepRow struct {
	Params  Params
	Metrics Metrics
}

// SweepResult bundles every evaluated row with the selected best.
// Rows keep grid enumeration order. Best is nil only when nothing ran;
// BestFeasible reports whether Best satisfied the sweep constraints or
// came from the unconstrained fallback.
type SweepResult struct {
	Rows         []SweepRow
	Best         *SweepRow
	BestFeasible bool
}

// SweepRun is the persistent record of one full sweep execution.
type SweepRun struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	StartTS      int64 // window filter, 0 = unbounded
	EndTS        int64
	Origin       string
	Settings     TradeSettings
	Mints        int
	Snapshots    int
	QuoteRows    int
	Combos       int
	Best         *SweepRow
	BestFeasible bool
}
