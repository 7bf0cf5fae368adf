package report

// files.go — reportes en archivo: summary.csv y best.json.
//
// El CSV lleva una columna param.<clave> por parámetro (orden alfabético)
// seguida de las métricas con precisión fija, así dos corridas sobre el
// mismo histórico producen archivos diffeable byte a byte.

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ranbysal/Slim4/internal/domain"
)

var summaryMetricCols = []string{
	"trades",
	"winrate",
	"total_pnl_sol",
	"max_drawdown",
	"avg_hold_sec",
	"pnl_by_origin",
}

// Files implementa ports.Reporter escribiendo los formatos configurados
// bajo un directorio de salida.
type Files struct {
	dir     string
	formats []string
}

// NewFiles crea un reporter de archivos. Formatos soportados: csv (summary),
// json (best) y parquet (rows).
func NewFiles(dir string, formats []string) *Files {
	return &Files{dir: dir, formats: formats}
}

// Report escribe cada formato configurado; falla en el primero que no se
// pueda escribir.
func (f *Files) Report(_ context.Context, result domain.SweepResult) error {
	for _, format := range f.formats {
		var err error
		switch format {
		case "csv":
			err = WriteSummaryCSV(f.dir, result.Rows)
		case "json":
			err = WriteBestJSON(f.dir, result.Best)
		case "parquet":
			err = WriteParquet(f.dir, result.Rows)
		default:
			err = fmt.Errorf("report.Files: unknown format %q", format)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteSummaryCSV escribe summary.csv con una fila por combinación evaluada,
// en orden de enumeración del grid.
func WriteSummaryCSV(dir string, rows []domain.SweepRow) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report.WriteSummaryCSV: mkdir %q: %w", dir, err)
	}
	path := filepath.Join(dir, "summary.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report.WriteSummaryCSV: create %q: %w", path, err)
	}
	defer f.Close()

	paramKeys := unionParamKeys(rows)

	w := csv.NewWriter(f)
	header := make([]string, 0, len(paramKeys)+len(summaryMetricCols))
	for _, k := range paramKeys {
		header = append(header, "param."+k)
	}
	header = append(header, summaryMetricCols...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("report.WriteSummaryCSV: write header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		for _, k := range paramKeys {
			v, ok := row.Params[k]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		m := row.Metrics
		record = append(record,
			strconv.Itoa(m.Trades),
			fmt.Sprintf("%.6f", m.Winrate()),
			fmt.Sprintf("%.8f", m.TotalPnLSOL),
			fmt.Sprintf("%.6f", m.MaxDrawdown),
			fmt.Sprintf("%.3f", m.AvgHoldSec()),
			compactOrigins(m.PnLByOrigin),
		)
		if err := w.Write(record); err != nil {
			return fmt.Errorf("report.WriteSummaryCSV: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("report.WriteSummaryCSV: flush: %w", err)
	}
	return nil
}

// WriteBestJSON escribe best.json con la mejor combinación del barrido;
// un objeto vacío cuando no hubo ninguna.
func WriteBestJSON(dir string, best *domain.SweepRow) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report.WriteBestJSON: mkdir %q: %w", dir, err)
	}

	var payload any = map[string]any{}
	if best != nil {
		payload = map[string]any{
			"params": best.Params,
			"metrics": map[string]any{
				"trades":        best.Metrics.Trades,
				"winrate":       best.Metrics.Winrate(),
				"total_pnl_sol": best.Metrics.TotalPnLSOL,
				"pnl_by_origin": originsOrEmpty(best.Metrics.PnLByOrigin),
				"max_drawdown":  best.Metrics.MaxDrawdown,
				"avg_hold_sec":  best.Metrics.AvgHoldSec(),
			},
		}
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("report.WriteBestJSON: encode: %w", err)
	}

	path := filepath.Join(dir, "best.json")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("report.WriteBestJSON: write %q: %w", path, err)
	}
	return nil
}

// --- helpers ---

// unionParamKeys junta las claves de parámetros de todas las filas, ordenadas.
func unionParamKeys(rows []domain.SweepRow) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row.Params {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compactOrigins serializa el pnl por origen como JSON compacto.
func compactOrigins(origins map[string]float64) string {
	encoded, err := json.Marshal(originsOrEmpty(origins))
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func originsOrEmpty(origins map[string]float64) map[string]float64 {
	if origins == nil {
		return map[string]float64{}
	}
	return origins
}
