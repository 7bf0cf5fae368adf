package report

// parquet.go — dump columnar del barrido para análisis posterior
// (pandas, duckdb) sin re-parsear el CSV.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/ranbysal/Slim4/internal/domain"
)

// sweepRecord es el schema parquet de una fila del barrido. Los parámetros
// canónicos van como columnas tipadas para poder filtrar y agrupar directo.
type sweepRecord struct {
	EntryMinScore   float64 `parquet:"entry_min_score"`
	MinObsBuyers    float64 `parquet:"min_obs_buyers"`
	MinObsUnique    float64 `parquet:"min_obs_unique"`
	SameFunderLimit float64 `parquet:"same_funder_limit"`
	SameFunderFatal float64 `parquet:"same_funder_fatal"`
	ApexScoreBoost  float64 `parquet:"apex_score_boost"`
	CooldownSec     float64 `parquet:"cooldown_sec"`
	Trades          int64   `parquet:"trades"`
	Winrate         float64 `parquet:"winrate"`
	TotalPnLSOL     float64 `parquet:"total_pnl_sol"`
	MaxDrawdown     float64 `parquet:"max_drawdown"`
	AvgHoldSec      float64 `parquet:"avg_hold_sec"`
}

// WriteParquet escribe rows.parquet con una fila por combinación evaluada.
// Sin filas no escribe nada.
func WriteParquet(dir string, rows []domain.SweepRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report.WriteParquet: mkdir %q: %w", dir, err)
	}

	records := make([]sweepRecord, 0, len(rows))
	for _, row := range rows {
		p := row.Params
		m := row.Metrics
		records = append(records, sweepRecord{
			EntryMinScore:   p.Float(domain.ParamEntryMinScore, 0),
			MinObsBuyers:    p.Float(domain.ParamMinObsBuyers, 0),
			MinObsUnique:    p.Float(domain.ParamMinObsUnique, 0),
			SameFunderLimit: p.Float(domain.ParamSameFunderLimit, 0),
			SameFunderFatal: p.Float(domain.ParamSameFunderFatal, 0),
			ApexScoreBoost:  p.Float(domain.ParamApexScoreBoost, 0),
			CooldownSec:     p.Float(domain.ParamCooldownSec, 0),
			Trades:          int64(m.Trades),
			Winrate:         m.Winrate(),
			TotalPnLSOL:     m.TotalPnLSOL,
			MaxDrawdown:     m.MaxDrawdown,
			AvgHoldSec:      m.AvgHoldSec(),
		})
	}

	path := filepath.Join(dir, "rows.parquet")
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("report.WriteParquet: write %q: %w", path, err)
	}
	return nil
}
