package backtest

// slippage.go — modelos de precio de ejecución bajo impacto de mercado.
//
// Tres variantes mutuamente excluyentes, como tipo suma cerrado (tag +
// switch): añadir una política nueva obliga a tocar los dos switch de abajo.
// Todas las funciones son puras y totales; el llamador rechaza tamaños no
// positivos antes de llegar aquí.

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/copybot/internal/domain"
)

// SlippageKind identifica la variante de pricing.
type SlippageKind int

const (
	SlippageLinear SlippageKind = iota
	SlippagePercentage
	SlippageMarketImpact
)

var defaultDepthCoefficient = decimal.NewFromInt(100000)

// SlippageModel mapea (precio cotizado, tamaño, lado) a precio de ejecución.
// Solo el parámetro de la variante activa se usa; los demás quedan en cero.
type SlippageModel struct {
	Kind             SlippageKind
	DepthCoefficient decimal.Decimal // Linear
	Rate             decimal.Decimal // Percentage
	ImpactParam      decimal.Decimal // MarketImpact
}

// LinearSlippage crea el modelo lineal: impacto = tamaño / depthCoefficient.
func LinearSlippage(depthCoefficient decimal.Decimal) SlippageModel {
	return SlippageModel{Kind: SlippageLinear, DepthCoefficient: depthCoefficient}
}

// PercentageSlippage crea el modelo porcentual: buy = quote×(1+rate),
// sell = quote×(1−rate).
func PercentageSlippage(rate decimal.Decimal) SlippageModel {
	return SlippageModel{Kind: SlippagePercentage, Rate: rate}
}

// MarketImpactSlippage crea el modelo logarítmico:
// impacto = impactParam × ln(tamaño).
func MarketImpactSlippage(impactParam decimal.Decimal) SlippageModel {
	return SlippageModel{Kind: SlippageMarketImpact, ImpactParam: impactParam}
}

// DefaultSlippage es el modelo lineal con profundidad 100000.
func DefaultSlippage() SlippageModel {
	return LinearSlippage(defaultDepthCoefficient)
}

// SlippageFromConfig selecciona el modelo por nombre. Un nombre no
// reconocido cae en silencio al modelo lineal por defecto, no es un error.
func SlippageFromConfig(name string, depthCoefficient, rate decimal.Decimal) SlippageModel {
	switch name {
	case "linear":
		return LinearSlippage(depthCoefficient)
	case "percentage":
		return PercentageSlippage(rate)
	default:
		return DefaultSlippage()
	}
}

// ExecutionPrice devuelve el precio real de ejecución con slippage aplicado.
// Un buy siempre paga impacto hacia arriba, un sell hacia abajo.
func (m SlippageModel) ExecutionPrice(quotePrice, size decimal.Decimal, side domain.Side) decimal.Decimal {
	var impact decimal.Decimal
	switch m.Kind {
	case SlippagePercentage:
		impact = quotePrice.Mul(m.Rate)
	case SlippageMarketImpact:
		impact = logImpact(m.ImpactParam, size)
	default:
		depth := m.DepthCoefficient
		if depth.IsZero() {
			depth = defaultDepthCoefficient
		}
		impact = size.Div(depth)
	}

	if side == domain.SideBuy {
		return quotePrice.Add(impact)
	}
	return quotePrice.Sub(impact)
}

// Slippage devuelve |precio de ejecución − precio cotizado|.
func (m SlippageModel) Slippage(quotePrice, size decimal.Decimal, side domain.Side) decimal.Decimal {
	return m.ExecutionPrice(quotePrice, size, side).Sub(quotePrice).Abs()
}

// logImpact calcula impactParam × ln(size). Es la única excursión a float64
// de todo el módulo: el resto del pipeline se queda en decimal. Un resultado
// no finito degrada a impacto cero en lugar de fallar el trade. Nótese que
// size ≤ 1 produce impacto ≤ 0 por construcción del logaritmo.
func logImpact(impactParam, size decimal.Decimal) decimal.Decimal {
	v := impactParam.InexactFloat64() * math.Log(size.InexactFloat64())
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
