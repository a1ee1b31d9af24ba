package backtest_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/copybot/internal/backtest"
	"github.com/alejandrodnm/copybot/internal/domain"
)

func closedWithPnL(market string, pnl decimal.Decimal) domain.ClosedPosition {
	return domain.ClosedPosition{
		Position: domain.Position{
			ID:         market + "-pos",
			MarketID:   market,
			EntryPrice: dec("0.5"),
			Size:       dec("100"),
			Side:       domain.SideBuy,
			OpenedAt:   time.Now().UTC(),
		},
		ExitPrice: dec("0.6"),
		PnL:       pnl,
		ClosedAt:  time.Now().UTC(),
	}
}

func TestMetrics_Report(t *testing.T) {
	metrics := backtest.NewPerformanceMetrics(dec("10000"))

	metrics.RecordClosedPosition(closedWithPnL("m1", dec("10")))
	metrics.RecordClosedPosition(closedWithPnL("m2", dec("-10")))
	metrics.RecordClosedPosition(closedWithPnL("m3", dec("20")))

	results := metrics.GenerateReport()

	assert.Equal(t, 3, results.TotalTrades)
	assert.Equal(t, 2, results.WinningTrades)
	assert.Equal(t, 1, results.LosingTrades)
	assert.True(t, results.TotalPnL.Equal(dec("20")), "got %s", results.TotalPnL)
	assert.True(t, results.AvgWin.Equal(dec("15")), "got %s", results.AvgWin)
	assert.True(t, results.AvgLoss.Equal(dec("10")), "got %s", results.AvgLoss)
	assert.Equal(t, "66.67", results.WinRate.StringFixed(2))
	assert.True(t, results.ProfitFactor.Equal(dec("1.5")), "got %s", results.ProfitFactor)
	assert.True(t, results.ROI.Equal(dec("0.2")), "got %s", results.ROI)

	// final = initial + Σ pnl, derivado independientemente del simulador
	assert.True(t, results.FinalBalance.Equal(dec("10020")), "got %s", results.FinalBalance)
}

func TestMetrics_EmptyReport(t *testing.T) {
	metrics := backtest.NewPerformanceMetrics(dec("10000"))
	results := metrics.GenerateReport()

	assert.Zero(t, results.TotalTrades)
	assert.True(t, results.WinRate.IsZero())
	assert.True(t, results.MaxDrawdown.IsZero())
	assert.True(t, results.SharpeRatio.IsZero())
	// Sin cierres el profit factor es 0, no el tope de 1000
	assert.True(t, results.ProfitFactor.IsZero(), "got %s", results.ProfitFactor)
	assert.True(t, results.FinalBalance.Equal(dec("10000")))
}

func TestMetrics_ProfitFactorCap(t *testing.T) {
	metrics := backtest.NewPerformanceMetrics(dec("10000"))
	metrics.RecordClosedPosition(closedWithPnL("m1", dec("10")))

	// Ganancias sin pérdidas: tope 1000 en lugar de infinito
	results := metrics.GenerateReport()
	assert.True(t, results.ProfitFactor.Equal(dec("1000")), "got %s", results.ProfitFactor)
}

func TestMetrics_BreakEvenCountsNeither(t *testing.T) {
	metrics := backtest.NewPerformanceMetrics(dec("10000"))
	metrics.RecordClosedPosition(closedWithPnL("m1", decimal.Zero))

	results := metrics.GenerateReport()
	assert.Equal(t, 1, results.TotalTrades)
	assert.Zero(t, results.WinningTrades)
	assert.Zero(t, results.LosingTrades)
}

func TestMetrics_MaxDrawdownIsOrderSensitive(t *testing.T) {
	// Pérdida primero: pico 100, caída a 90 → 10%
	m1 := backtest.NewPerformanceMetrics(dec("100"))
	m1.RecordClosedPosition(closedWithPnL("a", dec("-10")))
	m1.RecordClosedPosition(closedWithPnL("b", dec("20")))
	r1 := m1.GenerateReport()
	assert.Equal(t, "10.00", r1.MaxDrawdown.StringFixed(2))

	// Mismos pnl en orden inverso: pico 120, caída a 110 → 8.33%
	m2 := backtest.NewPerformanceMetrics(dec("100"))
	m2.RecordClosedPosition(closedWithPnL("b", dec("20")))
	m2.RecordClosedPosition(closedWithPnL("a", dec("-10")))
	r2 := m2.GenerateReport()
	assert.Equal(t, "8.33", r2.MaxDrawdown.StringFixed(2))
}

func TestMetrics_SharpeRatio(t *testing.T) {
	// pnl {10, 20}: media 15, desviación poblacional 5 → sharpe 3
	metrics := backtest.NewPerformanceMetrics(dec("10000"))
	metrics.RecordClosedPosition(closedWithPnL("m1", dec("10")))
	metrics.RecordClosedPosition(closedWithPnL("m2", dec("20")))

	results := metrics.GenerateReport()
	assert.InDelta(t, 3.0, results.SharpeRatio.InexactFloat64(), 1e-9)
}

func TestMetrics_SharpeRatio_ZeroStdDev(t *testing.T) {
	// pnl idénticos → desviación 0 → sharpe 0, nunca infinito
	metrics := backtest.NewPerformanceMetrics(dec("10000"))
	metrics.RecordClosedPosition(closedWithPnL("m1", dec("10")))
	metrics.RecordClosedPosition(closedWithPnL("m2", dec("10")))

	results := metrics.GenerateReport()
	assert.True(t, results.SharpeRatio.IsZero(), "got %s", results.SharpeRatio)
}

func TestMetrics_FeesAndSlippageTotals(t *testing.T) {
	metrics := backtest.NewPerformanceMetrics(dec("10000"))
	metrics.RecordTrade(domain.ExecutedTrade{
		Position:    domain.Position{MarketID: "m1", Size: dec("100")},
		ActualPrice: dec("0.51"),
		Slippage:    dec("0.01"),
		Fee:         dec("2.5"),
	})
	metrics.RecordTrade(domain.ExecutedTrade{
		Position:    domain.Position{MarketID: "m2", Size: dec("200")},
		ActualPrice: dec("0.49"),
		Slippage:    dec("0.02"),
		Fee:         dec("1.5"),
	})

	assert.True(t, metrics.TotalFees().Equal(dec("4")), "got %s", metrics.TotalFees())
	// Σ slippage × tamaño = 0.01×100 + 0.02×200 = 5
	assert.True(t, metrics.TotalSlippage().Equal(dec("5")), "got %s", metrics.TotalSlippage())
}
