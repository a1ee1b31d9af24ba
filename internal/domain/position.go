package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position es una posición abierta en un mercado. Cada ejecución abre una
// posición nueva e independiente: no hay netting entre posiciones del mismo
// mercado ni entre lados opuestos.
type Position struct {
	ID         string
	MarketID   string
	EntryPrice decimal.Decimal
	Size       decimal.Decimal
	Side       Side
	OpenedAt   time.Time

	// PnL acumulado. Queda en cero mientras la posición está abierta; el
	// P&L realizado vive en ClosedPosition.
	PnL decimal.Decimal
}

// ClosedPosition es una posición ya cerrada, con su precio de salida y P&L
// realizado. Inmutable una vez creada.
type ClosedPosition struct {
	Position  Position
	ExitPrice decimal.Decimal
	PnL       decimal.Decimal
	ClosedAt  time.Time
}

// ExecutedTrade es el resultado de una ejecución simulada: la posición
// abierta más el precio real de fill, el slippage y la fee pagada.
type ExecutedTrade struct {
	Position    Position
	ActualPrice decimal.Decimal
	Slippage    decimal.Decimal
	Fee         decimal.Decimal
}
