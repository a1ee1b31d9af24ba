package backtest

// metrics.go — acumulador de trades ejecutados y posiciones cerradas.
//
// Las listas solo crecen durante el run; el informe se calcula una única vez
// al final, en una pasada sobre el histórico completo. Nada se calcula
// incrementalmente.

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/copybot/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)

	// profitFactorCap sustituye al infinito cuando hay ganancias y ninguna
	// pérdida. Un run sin posiciones cerradas reporta 0, no este tope.
	profitFactorCap = decimal.NewFromInt(1000)
)

// PerformanceMetrics acumula la actividad de un run y genera el informe
// final. No se comparte entre runs.
type PerformanceMetrics struct {
	trades          []domain.ExecutedTrade
	closedPositions []domain.ClosedPosition
	initialBalance  decimal.Decimal
}

// NewPerformanceMetrics crea un acumulador vacío para el balance inicial dado.
func NewPerformanceMetrics(initialBalance decimal.Decimal) *PerformanceMetrics {
	return &PerformanceMetrics{initialBalance: initialBalance}
}

// RecordTrade registra una ejecución.
func (m *PerformanceMetrics) RecordTrade(t domain.ExecutedTrade) {
	m.trades = append(m.trades, t)
}

// RecordClosedPosition registra una posición cerrada. El orden de registro es
// el orden de cierre y determina el max drawdown.
func (m *PerformanceMetrics) RecordClosedPosition(p domain.ClosedPosition) {
	m.closedPositions = append(m.closedPositions, p)
}

// ClosedPositions devuelve una copia del histórico de cierres, en orden de
// cierre.
func (m *PerformanceMetrics) ClosedPositions() []domain.ClosedPosition {
	return slices.Clone(m.closedPositions)
}

// TotalFees devuelve el total de fees de entrada pagadas en el run.
func (m *PerformanceMetrics) TotalFees() decimal.Decimal {
	total := decimal.Zero
	for _, t := range m.trades {
		total = total.Add(t.Fee)
	}
	return total
}

// TotalSlippage devuelve el coste total de slippage: Σ slippage × tamaño.
func (m *PerformanceMetrics) TotalSlippage() decimal.Decimal {
	total := decimal.Zero
	for _, t := range m.trades {
		total = total.Add(t.Slippage.Mul(t.Position.Size))
	}
	return total
}

// GenerateReport calcula el informe completo del run. El balance final se
// deriva como initial + Σ pnl, independiente del balance que lleva el
// simulador, para poder cruzar ambos como chequeo de consistencia.
func (m *PerformanceMetrics) GenerateReport() domain.BacktestResults {
	totalPnL := decimal.Zero
	winning, losing := 0, 0
	sumWins, sumLosses := decimal.Zero, decimal.Zero

	for _, p := range m.closedPositions {
		totalPnL = totalPnL.Add(p.PnL)
		switch {
		case p.PnL.IsPositive():
			winning++
			sumWins = sumWins.Add(p.PnL)
		case p.PnL.IsNegative():
			losing++
			sumLosses = sumLosses.Add(p.PnL.Abs())
		}
		// pnl == 0 no cuenta en ningún lado
	}

	total := len(m.closedPositions)

	winRate := decimal.Zero
	if total > 0 {
		winRate = decimal.NewFromInt(int64(winning)).Div(decimal.NewFromInt(int64(total))).Mul(hundred)
	}

	avgWin := decimal.Zero
	if winning > 0 {
		avgWin = sumWins.Div(decimal.NewFromInt(int64(winning)))
	}
	avgLoss := decimal.Zero
	if losing > 0 {
		avgLoss = sumLosses.Div(decimal.NewFromInt(int64(losing)))
	}

	profitFactor := decimal.Zero
	switch {
	case total == 0:
		// sin cierres no hay factor que reportar
	case avgLoss.IsZero():
		profitFactor = profitFactorCap
	default:
		profitFactor = avgWin.Div(avgLoss)
	}

	roi := decimal.Zero
	if m.initialBalance.IsPositive() {
		roi = totalPnL.Div(m.initialBalance).Mul(hundred)
	}

	return domain.BacktestResults{
		TotalTrades:    total,
		WinningTrades:  winning,
		LosingTrades:   losing,
		WinRate:        winRate,
		TotalPnL:       totalPnL,
		ROI:            roi,
		AvgWin:         avgWin,
		AvgLoss:        avgLoss,
		ProfitFactor:   profitFactor,
		MaxDrawdown:    m.maxDrawdown(),
		SharpeRatio:    m.sharpeRatio(),
		InitialBalance: m.initialBalance,
		FinalBalance:   m.initialBalance.Add(totalPnL),
		TotalFees:      m.TotalFees(),
		TotalSlippage:  m.TotalSlippage(),
	}
}

// maxDrawdown recorre las posiciones en su orden de cierre llevando el pico
// de (balance inicial + pnl acumulado); el drawdown en cada paso es
// (pico − actual) / pico. El orden importa: reordenar los mismos pnl puede
// cambiar el resultado.
func (m *PerformanceMetrics) maxDrawdown() decimal.Decimal {
	peak := m.initialBalance
	current := m.initialBalance
	maxDD := decimal.Zero

	for _, p := range m.closedPositions {
		current = current.Add(p.PnL)
		if current.GreaterThan(peak) {
			peak = current
		}
		if peak.IsZero() {
			continue
		}
		dd := peak.Sub(current).Div(peak)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}

	return maxDD.Mul(hundred)
}

// sharpeRatio = media(pnl) / desviación estándar poblacional(pnl), con tasa
// libre de riesgo cero. Devuelve 0 sin posiciones cerradas o con desviación
// cero, nunca NaN ni infinito.
func (m *PerformanceMetrics) sharpeRatio() decimal.Decimal {
	n := int64(len(m.closedPositions))
	if n == 0 {
		return decimal.Zero
	}

	count := decimal.NewFromInt(n)
	sum := decimal.Zero
	for _, p := range m.closedPositions {
		sum = sum.Add(p.PnL)
	}
	mean := sum.Div(count)

	variance := decimal.Zero
	for _, p := range m.closedPositions {
		diff := p.PnL.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(count)

	stdDev := decimalSqrt(variance)
	if stdDev.IsZero() {
		return decimal.Zero
	}
	return mean.Div(stdDev)
}

// decimalSqrt aproxima la raíz cuadrada por iteración de Newton sin salir de
// decimal, para no añadir otra excursión a float64 al pipeline.
func decimalSqrt(d decimal.Decimal) decimal.Decimal {
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	two := decimal.NewFromInt(2)
	guess := d.DivRound(two, 16)
	if guess.IsZero() {
		guess = d
	}
	for i := 0; i < 64; i++ {
		next := guess.Add(d.DivRound(guess, 16)).DivRound(two, 16)
		if next.Equal(guess) {
			break
		}
		guess = next
	}
	return guess
}
