package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SizingPolicy define los límites de tamaño de posición de la cuenta.
type SizingPolicy struct {
	Strategy    string          // "absolute" | "relative" | "hybrid"
	MaxAbsolute decimal.Decimal // tope absoluto en USDC
	MaxRelative decimal.Decimal // fracción del balance, en (0, 1]

	// Priority decide qué tope se aplica último bajo "hybrid". Como min es
	// conmutativo sobre más de dos operandos, el flag no tiene efecto
	// observable en el resultado; se conserva por compatibilidad de config.
	Priority string // "absolute" | "relative"
}

// PositionSizer capa el tamaño deseado de un trade contra los límites de la
// cuenta.
type PositionSizer struct {
	policy SizingPolicy
}

// NewPositionSizer crea un sizer con la política dada. La validación de la
// política (nombres, rangos) ocurre al cargar la config; aquí solo se aplica.
func NewPositionSizer(policy SizingPolicy) *PositionSizer {
	return &PositionSizer{policy: policy}
}

// CalculatePositionSize devuelve el tamaño a ejecutar para un trade con
// tamaño objetivo targetSize y balance actual currentBalance.
//
// Devuelve ErrBelowMinimumSize si el tamaño capado queda en ≤ 0 (el
// llamador salta el trade) y un error de configuración si la estrategia no
// se reconoce (eso debería haberse detectado al validar la config).
func (s *PositionSizer) CalculatePositionSize(targetSize, currentBalance decimal.Decimal) (decimal.Decimal, error) {
	size := targetSize

	switch s.policy.Strategy {
	case "absolute":
		size = decimal.Min(size, s.policy.MaxAbsolute)
	case "relative":
		size = decimal.Min(size, currentBalance.Mul(s.policy.MaxRelative))
	case "hybrid":
		relative := currentBalance.Mul(s.policy.MaxRelative)
		if s.policy.Priority == "absolute" {
			size = decimal.Min(size, relative)
			size = decimal.Min(size, s.policy.MaxAbsolute)
		} else {
			size = decimal.Min(size, s.policy.MaxAbsolute)
			size = decimal.Min(size, relative)
		}
	default:
		return decimal.Zero, fmt.Errorf("backtest.CalculatePositionSize: unknown sizing strategy %q", s.policy.Strategy)
	}

	if size.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrBelowMinimumSize
	}
	return size, nil
}
