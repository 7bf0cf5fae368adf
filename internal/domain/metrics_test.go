package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_EmptyGuards(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 0.0, m.Winrate())
	assert.Equal(t, 0.0, m.AvgHoldSec())
}

func TestMetrics_RecordTrade(t *testing.T) {
	m := NewMetrics()
	m.RecordTrade(0.036, "pumpfun", 120)
	m.RecordTrade(-0.025, "pumpfun", 60)
	m.RecordTrade(0.01, "", 90)

	assert.Equal(t, 3, m.Trades)
	assert.Equal(t, 2, m.Wins)
	assert.InDelta(t, 0.021, m.TotalPnLSOL, 1e-9)
	assert.InDelta(t, 0.011, m.PnLByOrigin["pumpfun"], 1e-9)
	assert.InDelta(t, 0.01, m.PnLByOrigin[""], 1e-9)
	assert.InDelta(t, 2.0/3.0, m.Winrate(), 1e-9)
	assert.InDelta(t, 90.0, m.AvgHoldSec(), 1e-9)
}

func TestMetrics_NegativeHoldCountsZero(t *testing.T) {
	m := NewMetrics()
	m.RecordTrade(0.01, "pumpfun", -30)
	assert.Equal(t, int64(0), m.HoldSecsSum)
}

func TestMetrics_ZeroPnLIsNotAWin(t *testing.T) {
	m := NewMetrics()
	m.RecordTrade(0, "pumpfun", 10)
	assert.Equal(t, 0, m.Wins)
}

// --- EquityTracker ---

func TestEquityTracker_DrawdownAfterPeak(t *testing.T) {
	var e EquityTracker
	e.Record(1.0)  // equity 1, peak 1
	e.Record(-0.5) // equity 0.5 → dd 0.5/1 = 0.5
	assert.InDelta(t, 0.5, e.MaxDrawdown(), 1e-9)
	assert.InDelta(t, 0.5, e.Equity(), 1e-9)
}

func TestEquityTracker_NoDrawdownWhileNeverPositive(t *testing.T) {
	// peak nunca supera 0 → dd siempre 0 aunque la curva caiga
	var e EquityTracker
	e.Record(-0.2)
	e.Record(-0.3)
	assert.Equal(t, 0.0, e.MaxDrawdown())
}

func TestEquityTracker_MaxDrawdownSticks(t *testing.T) {
	var e EquityTracker
	e.Record(2.0)
	e.Record(-1.0) // dd 0.5
	e.Record(3.0)  // nueva cima, dd actual 0
	dd := e.Record(-0.4) // 4.0 → 3.6: dd 0.1
	assert.InDelta(t, 0.1, dd, 1e-9)
	assert.InDelta(t, 0.5, e.MaxDrawdown(), 1e-9)
}

func TestEquityTracker_AllWinsZeroDrawdown(t *testing.T) {
	var e EquityTracker
	for i := 0; i < 5; i++ {
		e.Record(0.1)
	}
	assert.Equal(t, 0.0, e.MaxDrawdown())
}
