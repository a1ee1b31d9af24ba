package ports

import (
	"context"

	"github.com/alejandrodnm/copybot/internal/domain"
)

// TradeFeed carga la secuencia completa de trades históricos. La carga
// termina entera antes de que arranque la simulación; nunca se intercala con
// el procesado de trades.
type TradeFeed interface {
	Load(ctx context.Context) ([]domain.HistoricalTrade, error)
}
