package storage_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/ranbysal/Slim4/internal/adapters/storage"
	"github.com/ranbysal/Slim4/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsDDL = `
CREATE TABLE events (
    mint              TEXT,
    ts                INTEGER,
    buyers            INTEGER,
    unique_funders    INTEGER,
    same_funder_ratio REAL,
    price_jumps       INTEGER,
    depth_est         REAL,
    origin            TEXT
);`

const quotesDDL = `
CREATE TABLE quotes (
    mint               TEXT,
    ts                 INTEGER,
    size_sol           REAL,
    est_fill_price_sol REAL
);`

// newTestDB crea un archivo sqlite temporal y ejecuta los statements dados,
// simulando la base que deja el recolector.
func newTestDB(t *testing.T, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.sqlite")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func openHistory(t *testing.T, path string) *storage.SQLiteHistory {
	t.Helper()
	h, err := storage.NewSQLiteHistory(path, "pumpfun")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

// --- LoadSnapshots ---

func TestSQLiteHistory_LoadSnapshots(t *testing.T) {
	path := newTestDB(t, eventsDDL,
		`INSERT INTO events VALUES ('mintA', 200, 8, 7, 0.5, 3, 2.5, 'pumpfun')`,
		`INSERT INTO events VALUES ('mintA', 100, 7, 6, 0.43, 2, 1.0, 'pumpfun')`,
		`INSERT INTO events VALUES ('mintB', 150, 5, NULL, NULL, NULL, NULL, 'pumpfun')`,
		`INSERT INTO events VALUES ('mintC', 300, 9, 8, 0.1, 1, 3.0, 'otro')`,
	)
	h := openHistory(t, path)

	snaps, err := h.LoadSnapshots(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2) // el origen 'otro' queda fuera

	// mintA ordenado por ts aunque se insertó al revés
	require.Len(t, snaps["mintA"], 2)
	assert.Equal(t, int64(100), snaps["mintA"][0].TS)
	assert.Equal(t, int64(200), snaps["mintA"][1].TS)

	// same_count reconstruido: ROUND(0.43 × 7) = 3, ROUND(0.5 × 8) = 4
	assert.Equal(t, 3, snaps["mintA"][0].Same)
	assert.Equal(t, 4, snaps["mintA"][1].Same)
	assert.Equal(t, 2.5, snaps["mintA"][1].Depth)
	assert.Equal(t, "pumpfun", snaps["mintA"][1].Origin)

	// NULLs colapsan a cero
	require.Len(t, snaps["mintB"], 1)
	assert.Equal(t, 5, snaps["mintB"][0].Buyers)
	assert.Equal(t, 0, snaps["mintB"][0].Unique)
	assert.Equal(t, 0, snaps["mintB"][0].Same)
	assert.Equal(t, 0, snaps["mintB"][0].PriceJumps)
	assert.Equal(t, 0.0, snaps["mintB"][0].Depth)
}

func TestSQLiteHistory_LoadSnapshots_WindowFilter(t *testing.T) {
	path := newTestDB(t, eventsDDL,
		`INSERT INTO events VALUES ('mintA', 100, 8, 7, 0, 0, 0, 'pumpfun')`,
		`INSERT INTO events VALUES ('mintA', 200, 8, 7, 0, 0, 0, 'pumpfun')`,
		`INSERT INTO events VALUES ('mintA', 300, 8, 7, 0, 0, 0, 'pumpfun')`,
	)
	h := openHistory(t, path)

	snaps, err := h.LoadSnapshots(context.Background(), 150, 250)
	require.NoError(t, err)
	require.Len(t, snaps["mintA"], 1)
	assert.Equal(t, int64(200), snaps["mintA"][0].TS)
}

func TestSQLiteHistory_LoadSnapshots_MillisecondTimestamps(t *testing.T) {
	// El filtro de ventana corre sobre el ts ya normalizado a segundos.
	path := newTestDB(t, eventsDDL,
		`INSERT INTO events VALUES ('mintA', 1700000000000, 8, 7, 0, 0, 0, 'pumpfun')`,
	)
	h := openHistory(t, path)

	snaps, err := h.LoadSnapshots(context.Background(), 1699999999, 1700000001)
	require.NoError(t, err)
	require.Len(t, snaps["mintA"], 1)
	assert.Equal(t, int64(1700000000), snaps["mintA"][0].TS)
}

func TestSQLiteHistory_LoadSnapshots_TextTimestamps(t *testing.T) {
	path := newTestDB(t, eventsDDL,
		`INSERT INTO events VALUES ('mintA', '2024-01-15 12:00:00', 8, 7, 0, 0, 0, 'pumpfun')`,
		`INSERT INTO events VALUES ('mintA', 'basura', 5, 4, 0, 0, 0, 'pumpfun')`,
	)
	h := openHistory(t, path)

	snaps, err := h.LoadSnapshots(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, snaps["mintA"], 2)

	// Texto ilegible colapsa a 0 y ordena primero
	assert.Equal(t, int64(0), snaps["mintA"][0].TS)

	want := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, want, snaps["mintA"][1].TS)
}

// --- LoadQuotes ---

func TestSQLiteHistory_LoadQuotes_StandardSchema(t *testing.T) {
	path := newTestDB(t, eventsDDL, quotesDDL,
		`INSERT INTO events VALUES ('mintA', 100, 8, 7, 0, 0, 0, 'pumpfun')`,
		`INSERT INTO quotes VALUES ('mintA', 110, 0.1, 1.5)`,
		`INSERT INTO quotes VALUES ('mintA', 120, 0.1000004, 1.6)`, // redondea a 0.1
		`INSERT INTO quotes VALUES ('mintA', 130, 0.4, 1.7)`,
		`INSERT INTO quotes VALUES ('mintA', 140, 0.25, 1.8)`, // tamaño no pedido
		`INSERT INTO quotes VALUES ('fantasma', 150, 0.1, 1.9)`, // mint sin eventos
	)
	h := openHistory(t, path)

	quotes, err := h.LoadQuotes(context.Background(), []float64{0.1, 0.4})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Len(t, quotes["mintA"], 3)

	assert.Equal(t, int64(110), quotes["mintA"][0].TS)
	assert.Equal(t, 0.1, quotes["mintA"][0].SizeSOL)
	assert.Equal(t, 1.5, quotes["mintA"][0].PriceSOL)
	assert.Equal(t, 0.1, quotes["mintA"][1].SizeSOL) // 0.1000004 → 0.1
	assert.Equal(t, 0.4, quotes["mintA"][2].SizeSOL)
}

func TestSQLiteHistory_LoadQuotes_AlternateSchema(t *testing.T) {
	// Versión vieja del recolector: tabla px_quotes con columnas renombradas
	// y timestamps en texto.
	path := newTestDB(t, eventsDDL,
		`CREATE TABLE px_quotes (
		    token     TEXT,
		    timestamp TEXT,
		    size      REAL,
		    price     REAL
		)`,
		`INSERT INTO events VALUES ('mintA', 100, 8, 7, 0, 0, 0, 'pumpfun')`,
		`INSERT INTO px_quotes VALUES ('mintA', '2024-01-15 12:00:00', 0.1, 2.5)`,
	)
	h := openHistory(t, path)

	quotes, err := h.LoadQuotes(context.Background(), []float64{0.1})
	require.NoError(t, err)
	require.Len(t, quotes["mintA"], 1)

	want := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, want, quotes["mintA"][0].TS)
	assert.Equal(t, 2.5, quotes["mintA"][0].PriceSOL)
}

func TestSQLiteHistory_LoadQuotes_PrefersStandardTable(t *testing.T) {
	path := newTestDB(t, eventsDDL, quotesDDL,
		`CREATE TABLE px_quotes (token TEXT, timestamp TEXT, size REAL, price REAL)`,
		`INSERT INTO events VALUES ('mintA', 100, 8, 7, 0, 0, 0, 'pumpfun')`,
		`INSERT INTO quotes VALUES ('mintA', 110, 0.1, 1.5)`,
		`INSERT INTO px_quotes VALUES ('mintA', '200', 0.1, 9.9)`,
	)
	h := openHistory(t, path)

	quotes, err := h.LoadQuotes(context.Background(), []float64{0.1})
	require.NoError(t, err)
	require.Len(t, quotes["mintA"], 1)
	assert.Equal(t, 1.5, quotes["mintA"][0].PriceSOL)
}

func TestSQLiteHistory_LoadQuotes_MissingTable(t *testing.T) {
	path := newTestDB(t, eventsDDL)
	h := openHistory(t, path)

	_, err := h.LoadQuotes(context.Background(), []float64{0.1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the expected tables exist")
}

func TestSQLiteHistory_LoadQuotes_MissingColumn(t *testing.T) {
	path := newTestDB(t, eventsDDL,
		`CREATE TABLE quotes (mint TEXT, ts INTEGER, size_sol REAL)`, // sin precio
	)
	h := openHistory(t, path)

	_, err := h.LoadQuotes(context.Background(), []float64{0.1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

// --- SaveRun ---

func TestSQLiteHistory_SaveRun(t *testing.T) {
	path := newTestDB(t, eventsDDL)
	h := openHistory(t, path)

	best := domain.SweepRow{
		Params:  domain.DefaultParams(),
		Metrics: domain.Metrics{Trades: 12, Wins: 8, TotalPnLSOL: 0.42, MaxDrawdown: 0.2},
	}
	run := domain.SweepRun{
		ID:           "run-123",
		StartedAt:    time.Now().UTC(),
		FinishedAt:   time.Now().UTC(),
		Origin:       "pumpfun",
		Settings:     domain.DefaultTradeSettings(),
		Mints:        3,
		Snapshots:    40,
		QuoteRows:    200,
		Combos:       8,
		Best:         &best,
		BestFeasible: true,
	}
	require.NoError(t, h.SaveRun(context.Background(), run))
	require.NoError(t, h.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var (
		id         string
		combos     int
		feasible   int
		bestParams string
		bestTrades int
		bestPnL    float64
	)
	err = db.QueryRow(`
		SELECT id, combos, best_feasible, best_params, best_trades, best_pnl
		FROM backtest_runs
	`).Scan(&id, &combos, &feasible, &bestParams, &bestTrades, &bestPnL)
	require.NoError(t, err)

	assert.Equal(t, "run-123", id)
	assert.Equal(t, 8, combos)
	assert.Equal(t, 1, feasible)
	assert.Equal(t, 12, bestTrades)
	assert.InDelta(t, 0.42, bestPnL, 1e-9)

	var params domain.Params
	require.NoError(t, json.Unmarshal([]byte(bestParams), &params))
	assert.Equal(t, domain.DefaultParams(), params)
}

func TestSQLiteHistory_SaveRun_NoBest(t *testing.T) {
	path := newTestDB(t, eventsDDL)
	h := openHistory(t, path)

	run := domain.SweepRun{
		ID:         "run-456",
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
		Origin:     "pumpfun",
		Settings:   domain.DefaultTradeSettings(),
	}
	require.NoError(t, h.SaveRun(context.Background(), run))
	require.NoError(t, h.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var bestParams sql.NullString
	err = db.QueryRow(`SELECT best_params FROM backtest_runs WHERE id = 'run-456'`).Scan(&bestParams)
	require.NoError(t, err)
	assert.False(t, bestParams.Valid)
}
