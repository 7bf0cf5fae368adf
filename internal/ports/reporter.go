package ports

import (
	"context"

	"github.com/ranbysal/Slim4/internal/domain"
)

// Reporter presenta el resultado de un sweep al usuario o lo serializa.
type Reporter interface {
	// Report emite todas las filas del sweep y el best seleccionado.
	Report(ctx context.Context, result domain.SweepResult) error
}
