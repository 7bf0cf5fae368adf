package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/ranbysal/Slim4/internal/domain"
)

// Console implementa ports.Reporter.
type Console struct {
	out   io.Writer
	table bool
	top   int // filas a mostrar en modo tabla
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table, top: 10}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, top: 10}
}

// Report imprime el resultado del barrido en el modo configurado.
func (c *Console) Report(_ context.Context, result domain.SweepResult) error {
	if len(result.Rows) == 0 {
		fmt.Fprintln(c.out, "no parameter combinations evaluated")
		return nil
	}

	if c.table {
		c.printTable(result.Rows)
	}
	c.printBest(result)
	return nil
}

// printTable imprime las mejores filas ordenadas por pnl total.
func (c *Console) printTable(rows []domain.SweepRow) {
	ranked := make([]domain.SweepRow, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Metrics.TotalPnLSOL > ranked[j].Metrics.TotalPnLSOL
	})

	shown := min(c.top, len(ranked))
	fmt.Fprintf(c.out, "\n%d combinations, top %d by pnl:\n", len(ranked), shown)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Params", "Trades", "Winrate", "PnL SOL", "MaxDD", "AvgHold(s)")

	for i, row := range ranked[:shown] {
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(compactParams(row.Params), 46),
			fmt.Sprintf("%d", row.Metrics.Trades),
			fmt.Sprintf("%.2f", row.Metrics.Winrate()),
			fmt.Sprintf("%.4f", row.Metrics.TotalPnLSOL),
			fmt.Sprintf("%.3f", row.Metrics.MaxDrawdown),
			fmt.Sprintf("%.1f", row.Metrics.AvgHoldSec()),
		)
	}
	table.Render()
}

// printBest imprime el bloque final con la mejor combinación. Cuando ninguna
// cumplió las restricciones se avisa y se muestra la mejor sin restricciones.
func (c *Console) printBest(result domain.SweepResult) {
	best := result.Best
	if best == nil {
		fmt.Fprintln(c.out, "No parameter set met constraints; see summary.csv for details.")
		return
	}

	if result.BestFeasible {
		fmt.Fprintln(c.out, "Best params:")
	} else {
		fmt.Fprintln(c.out, "No parameter set met constraints; see summary.csv for details.")
		fmt.Fprintln(c.out, "Best unconstrained:")
	}
	fmt.Fprintln(c.out, compactParams(best.Params))

	m := best.Metrics
	fmt.Fprintf(c.out, "trades=%d winrate=%.2f pnl=%.4f dd=%.3f avg_hold_sec=%.1f\n",
		m.Trades, m.Winrate(), m.TotalPnLSOL, m.MaxDrawdown, m.AvgHoldSec())
}

// --- helpers ---

// compactParams serializa los parámetros como JSON compacto de claves ordenadas.
func compactParams(p domain.Params) string {
	encoded, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
