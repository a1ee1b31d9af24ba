package ports

import (
	"context"

	"github.com/alejandrodnm/copybot/internal/domain"
)

// ResultStore persiste runs de backtest para compararlos entre sí.
type ResultStore interface {
	// SaveRun guarda el run con sus métricas y posiciones cerradas.
	SaveRun(ctx context.Context, run domain.BacktestRun) error

	// GetRuns devuelve los últimos runs, el más reciente primero, sin el
	// detalle de posiciones.
	GetRuns(ctx context.Context, limit int) ([]domain.BacktestRun, error)

	// GetClosedPositions devuelve el detalle de cierres de un run.
	GetClosedPositions(ctx context.Context, runID string) ([]domain.ClosedPosition, error)

	Close() error
}
