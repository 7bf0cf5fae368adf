package storage

// sqlite.go — lector del histórico del recolector y registro de barridos.
//
// Estrategia:
//   - `events`: esquema fijo del recolector. Se filtra por origen en SQL y
//     por ventana temporal en código, después de normalizar timestamps.
//   - quotes: el nombre de la tabla y de sus columnas cambió entre versiones
//     del recolector, así que se descubren contra sqlite_master y PRAGMA
//     table_info antes de armar la consulta.
//   - Timestamps heterogéneos (epoch s, epoch ms, texto ISO) se normalizan
//     a epoch segundos al cargar; el resto del sistema solo ve segundos.
//   - `backtest_runs`: una fila por barrido ejecutado, para auditar qué se
//     corrió contra qué ventana y con qué resultado.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ranbysal/Slim4/internal/domain"
	_ "modernc.org/sqlite"
)

const runsSchema = `
-- Una fila por barrido ejecutado
CREATE TABLE IF NOT EXISTS backtest_runs (
    id            TEXT PRIMARY KEY,
    started_at    DATETIME NOT NULL,
    finished_at   DATETIME NOT NULL,
    start_ts      INTEGER  NOT NULL DEFAULT 0,
    end_ts        INTEGER  NOT NULL DEFAULT 0,
    origin        TEXT     NOT NULL,
    tp            REAL     NOT NULL,
    sl            REAL     NOT NULL,
    tmax_sec      INTEGER  NOT NULL,
    size_small    REAL     NOT NULL,
    size_apex     REAL     NOT NULL,
    mints         INTEGER  NOT NULL DEFAULT 0,
    snapshots     INTEGER  NOT NULL DEFAULT 0,
    quote_rows    INTEGER  NOT NULL DEFAULT 0,
    combos        INTEGER  NOT NULL DEFAULT 0,
    best_feasible INTEGER  NOT NULL DEFAULT 0,
    best_params   TEXT,
    best_trades   INTEGER,
    best_winrate  REAL,
    best_pnl      REAL,
    best_drawdown REAL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON backtest_runs(started_at DESC);
`

// quoteTables son los nombres que las distintas versiones del recolector
// usaron para la tabla de quotes, en orden de preferencia.
var quoteTables = []string{"quotes", "price_quotes", "px_quotes"}

// SQLiteHistory implementa ports.History y ports.RunStore sobre el archivo
// SQLite que escribe el recolector (pure Go, sin CGo).
type SQLiteHistory struct {
	db     *sql.DB
	origin string // launchpad a cargar, p.ej. "pumpfun"
}

// NewSQLiteHistory abre la base de datos en la ruta dada y aplica el schema
// del registro de barridos. Las tablas del recolector no se tocan.
func NewSQLiteHistory(path, origin string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteHistory: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(runsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteHistory: apply schema: %w", err)
	}

	return &SQLiteHistory{db: db, origin: origin}, nil
}

// LoadSnapshots carga las observaciones del origen configurado, agrupadas
// por mint y ordenadas por ts ascendente. La ventana [start, end] se aplica
// sobre timestamps ya normalizados; 0 deja ese extremo sin acotar.
//
// same_count se reconstruye en SQL desde el ratio persistido: el recolector
// guarda same_funder_ratio, pero la lógica de scoring trabaja con conteos.
func (s *SQLiteHistory) LoadSnapshots(ctx context.Context, startTS, endTS int64) (map[string][]domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
		    mint,
		    ts,
		    buyers,
		    unique_funders,
		    CAST(ROUND(same_funder_ratio * buyers) AS INTEGER) AS same_count,
		    price_jumps,
		    depth_est,
		    origin
		FROM events
		WHERE origin = ?
		ORDER BY ts
	`, s.origin)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadSnapshots: query events: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Snapshot)
	for rows.Next() {
		var (
			mint   sql.NullString
			rawTS  any
			buyers sql.NullInt64
			unique sql.NullInt64
			same   sql.NullInt64
			jumps  sql.NullInt64
			depth  sql.NullFloat64
			origin sql.NullString
		)
		if err := rows.Scan(&mint, &rawTS, &buyers, &unique, &same, &jumps, &depth, &origin); err != nil {
			return nil, fmt.Errorf("storage.LoadSnapshots: scan row: %w", err)
		}

		ts := normalizeTS(rawTS)
		if startTS > 0 && ts < startTS {
			continue
		}
		if endTS > 0 && ts > endTS {
			continue
		}

		out[mint.String] = append(out[mint.String], domain.Snapshot{
			Mint:       mint.String,
			TS:         ts,
			Buyers:     int(buyers.Int64),
			Unique:     int(unique.Int64),
			Same:       int(same.Int64),
			PriceJumps: int(jumps.Int64),
			Depth:      depth.Float64,
			Origin:     origin.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.LoadSnapshots: rows: %w", err)
	}

	// Orden por ts normalizado: el ORDER BY de SQL pudo mezclar formatos.
	for _, snaps := range out {
		sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].TS < snaps[j].TS })
	}
	return out, nil
}

// LoadQuotes carga los quotes de los mints que tienen eventos del origen
// configurado, filtrados a los tamaños pedidos. El filtro de tamaño corre
// en código con redondeo a 6 decimales para esquivar desajustes de floats
// persistidos. Devuelve streams por mint ordenados por ts ascendente.
func (s *SQLiteHistory) LoadQuotes(ctx context.Context, sizes []float64) (map[string][]domain.Quote, error) {
	table, err := s.findTable(ctx, quoteTables)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadQuotes: %w", err)
	}
	cols, err := s.tableColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadQuotes: %w", err)
	}

	cMint, err := pickColumn(table, cols, "mint", "mint_address", "token", "asset")
	if err != nil {
		return nil, fmt.Errorf("storage.LoadQuotes: %w", err)
	}
	cTS, err := pickColumn(table, cols, "ts", "timestamp", "time")
	if err != nil {
		return nil, fmt.Errorf("storage.LoadQuotes: %w", err)
	}
	cSize, err := pickColumn(table, cols, "size_sol", "size", "quote_size_sol")
	if err != nil {
		return nil, fmt.Errorf("storage.LoadQuotes: %w", err)
	}
	cPrice, err := pickColumn(table, cols, "est_fill_price_sol", "price", "fill_price_sol", "est_price_sol")
	if err != nil {
		return nil, fmt.Errorf("storage.LoadQuotes: %w", err)
	}

	// Nombres interpolados directo en el SQL: salen de listas fijas de
	// candidatos, nunca de entrada externa.
	query := fmt.Sprintf(
		"SELECT q.%s, q.%s, q.%s, q.%s FROM %s AS q "+
			"JOIN (SELECT DISTINCT mint FROM events WHERE origin = ?) AS e ON e.mint = q.%s "+
			"ORDER BY q.%s ASC",
		cMint, cTS, cSize, cPrice, table, cMint, cTS,
	)
	rows, err := s.db.QueryContext(ctx, query, s.origin)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadQuotes: query %s: %w", table, err)
	}
	defer rows.Close()

	wanted := make(map[float64]bool, len(sizes))
	for _, size := range sizes {
		wanted[round6(size)] = true
	}

	out := make(map[string][]domain.Quote)
	for rows.Next() {
		var (
			mint  sql.NullString
			rawTS any
			size  sql.NullFloat64
			price sql.NullFloat64
		)
		if err := rows.Scan(&mint, &rawTS, &size, &price); err != nil {
			return nil, fmt.Errorf("storage.LoadQuotes: scan row: %w", err)
		}

		rounded := round6(size.Float64)
		if !wanted[rounded] {
			continue
		}

		out[mint.String] = append(out[mint.String], domain.Quote{
			Mint:     mint.String,
			TS:       normalizeTS(rawTS),
			SizeSOL:  rounded,
			PriceSOL: price.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.LoadQuotes: rows: %w", err)
	}

	for _, quotes := range out {
		sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].TS < quotes[j].TS })
	}
	return out, nil
}

// SaveRun registra un barrido terminado en backtest_runs.
func (s *SQLiteHistory) SaveRun(ctx context.Context, run domain.SweepRun) error {
	var (
		bestParams   any
		bestTrades   any
		bestWinrate  any
		bestPnL      any
		bestDrawdown any
	)
	if run.Best != nil {
		encoded, err := json.Marshal(run.Best.Params)
		if err != nil {
			return fmt.Errorf("storage.SaveRun: encode best params: %w", err)
		}
		bestParams = string(encoded)
		bestTrades = run.Best.Metrics.Trades
		bestWinrate = run.Best.Metrics.Winrate()
		bestPnL = run.Best.Metrics.TotalPnLSOL
		bestDrawdown = run.Best.Metrics.MaxDrawdown
	}

	feasible := 0
	if run.BestFeasible {
		feasible = 1
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, started_at, finished_at, start_ts, end_ts, origin,
			 tp, sl, tmax_sec, size_small, size_apex,
			 mints, snapshots, quote_rows, combos, best_feasible,
			 best_params, best_trades, best_winrate, best_pnl, best_drawdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.StartTS,
		run.EndTS,
		run.Origin,
		run.Settings.TakeProfit,
		run.Settings.StopLoss,
		run.Settings.MaxHoldSec,
		run.Settings.SizeSmallSOL,
		run.Settings.SizeApexSOL,
		run.Mints,
		run.Snapshots,
		run.QuoteRows,
		run.Combos,
		feasible,
		bestParams,
		bestTrades,
		bestWinrate,
		bestPnL,
		bestDrawdown,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// findTable devuelve el primer candidato que existe en sqlite_master.
func (s *SQLiteHistory) findTable(ctx context.Context, candidates []string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("scan table name: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	for _, c := range candidates {
		if existing[c] {
			return c, nil
		}
	}
	return "", fmt.Errorf("none of the expected tables exist: %s", strings.Join(candidates, ", "))
}

// tableColumns devuelve el set de nombres de columna de una tabla.
func (s *SQLiteHistory) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		// PRAGMA table_info: (cid, name, type, notnull, dflt_value, pk)
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// pickColumn devuelve el primer candidato presente en la tabla.
func pickColumn(table string, cols map[string]bool, candidates ...string) (string, error) {
	for _, c := range candidates {
		if cols[c] {
			return c, nil
		}
	}
	return "", fmt.Errorf("missing required column in %s: one of %s", table, strings.Join(candidates, ", "))
}

// normalizeTS acepta epoch en segundos o milisegundos (numérico o texto) y
// texto ISO tipo 'YYYY-MM-DD HH:MM:SS' interpretado como UTC; cualquier
// otra cosa colapsa a 0. Los milisegundos se detectan por magnitud.
func normalizeTS(raw any) int64 {
	var ts int64
	switch v := raw.(type) {
	case int64:
		ts = v
	case float64:
		ts = int64(v)
	case string:
		ts = parseTextTS(v)
	case []byte:
		ts = parseTextTS(string(v))
	case time.Time:
		ts = v.Unix()
	default:
		return 0
	}
	if ts > 1_000_000_000_000 {
		ts /= 1000
	}
	return ts
}

var textTSLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func parseTextTS(s string) int64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	for _, layout := range textTSLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix()
		}
	}
	return 0
}

// round6 redondea un tamaño de orden a 6 decimales, la resolución con la
// que el recolector persiste tamaños.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
