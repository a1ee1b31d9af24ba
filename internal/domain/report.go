package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestResults es el snapshot de métricas de un run, calculado una sola
// vez al final sobre el histórico completo de posiciones cerradas.
//
// Todos los valores se guardan con precisión completa; el redondeo a 2
// decimales ocurre solo al renderizar, nunca aquí.
type BacktestResults struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       decimal.Decimal // porcentaje

	TotalPnL decimal.Decimal
	ROI      decimal.Decimal // porcentaje

	AvgWin       decimal.Decimal
	AvgLoss      decimal.Decimal
	ProfitFactor decimal.Decimal
	MaxDrawdown  decimal.Decimal // porcentaje
	SharpeRatio  decimal.Decimal

	InitialBalance decimal.Decimal
	FinalBalance   decimal.Decimal

	TotalFees     decimal.Decimal
	TotalSlippage decimal.Decimal
}

// BacktestRun es un run completo: identidad, ventana simulada, métricas y
// el detalle de posiciones cerradas que las produjo.
type BacktestRun struct {
	ID        string
	StartDate time.Time
	EndDate   time.Time
	RanAt     time.Time
	Results   BacktestResults
	Closed    []ClosedPosition
}
