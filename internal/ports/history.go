package ports

import (
	"context"

	"github.com/ranbysal/Slim4/internal/domain"
)

// History carga el histórico grabado sobre el que corre el backtest.
type History interface {
	// LoadSnapshots devuelve los snapshots de observación por mint, ordenados
	// por ts asc. start/end acotan la ventana en unix seconds; 0 = sin límite.
	LoadSnapshots(ctx context.Context, start, end int64) (map[string][]domain.Snapshot, error)

	// LoadQuotes devuelve los quotes por mint para los tamaños de orden dados,
	// ordenados por ts asc. Solo incluye mints presentes en los eventos del
	// origin configurado.
	LoadQuotes(ctx context.Context, sizes []float64) (map[string][]domain.Quote, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
