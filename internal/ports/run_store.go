package ports

import (
	"context"

	"github.com/ranbysal/Slim4/internal/domain"
)

// RunStore registra las ejecuciones completas del sweep para poder
// compararlas entre sí más adelante.
type RunStore interface {
	// SaveRun persiste el registro de un run terminado.
	SaveRun(ctx context.Context, run domain.SweepRun) error
}
