package backtest

// simulator.go — ledger del backtest: balance y posiciones abiertas.
//
// El simulador es dueño exclusivo de los dos. Un run es estrictamente
// secuencial: ninguna instancia se comparte entre runs concurrentes.

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/copybot/internal/domain"
)

var bpsDivisor = decimal.NewFromInt(10000)

// TradeSimulator ejecuta trades con slippage y fees contra un balance
// simulado, y mantiene la lista de posiciones abiertas en orden de inserción.
type TradeSimulator struct {
	balance    decimal.Decimal
	positions  []domain.Position
	feeRateBps int64
}

// NewTradeSimulator crea un simulador con el balance inicial dado.
// feeRateBps en basis points; 0 desactiva las fees.
func NewTradeSimulator(initialBalance decimal.Decimal, feeRateBps int64) *TradeSimulator {
	return &TradeSimulator{balance: initialBalance, feeRateBps: feeRateBps}
}

// Balance devuelve el balance actual.
func (s *TradeSimulator) Balance() decimal.Decimal {
	return s.balance
}

// OpenPositions devuelve una copia de las posiciones abiertas, en orden de
// apertura.
func (s *TradeSimulator) OpenPositions() []domain.Position {
	return slices.Clone(s.positions)
}

// Execute simula la ejecución de un trade: precio vía el modelo de slippage,
// fee sobre el coste, y alta de una posición nueva. No hay netting: un sell
// abre una posición corta independiente aunque exista un buy abierto en el
// mismo mercado.
//
// Un buy cuyo coste total supere el balance se rechaza con
// ErrInsufficientBalance sin mutar nada.
func (s *TradeSimulator) Execute(marketID string, side domain.Side, size, quotePrice decimal.Decimal, model SlippageModel) (domain.ExecutedTrade, error) {
	actualPrice := model.ExecutionPrice(quotePrice, size, side)
	slippage := model.Slippage(quotePrice, size, side)

	cost := size.Mul(actualPrice)
	fee := s.fee(cost)
	totalCost := cost.Add(fee)

	if side == domain.SideBuy && totalCost.GreaterThan(s.balance) {
		return domain.ExecutedTrade{}, ErrInsufficientBalance
	}

	switch side {
	case domain.SideBuy:
		s.balance = s.balance.Sub(totalCost)
	case domain.SideSell:
		s.balance = s.balance.Add(totalCost)
	}

	position := domain.Position{
		ID:         uuid.New().String(),
		MarketID:   marketID,
		EntryPrice: actualPrice,
		Size:       size,
		Side:       side,
		OpenedAt:   time.Now().UTC(),
		PnL:        decimal.Zero,
	}
	s.positions = append(s.positions, position)

	return domain.ExecutedTrade{
		Position:    position,
		ActualPrice: actualPrice,
		Slippage:    slippage,
		Fee:         fee,
	}, nil
}

// ClosePosition cierra la primera posición abierta (en orden de inserción)
// del mercado dado al precio de salida indicado.
//
// El P&L reportado descuenta solo la fee de salida. La fee de entrada ya se
// debitó del balance al abrir y no se vuelve a restar aquí, así que el P&L
// reportado subestima el coste real del round-trip en esa fee de entrada.
func (s *TradeSimulator) ClosePosition(marketID string, exitPrice decimal.Decimal) (domain.ClosedPosition, error) {
	idx := -1
	for i, p := range s.positions {
		if p.MarketID == marketID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ClosedPosition{}, fmt.Errorf("backtest.ClosePosition: market %s: %w", marketID, ErrNoOpenPosition)
	}

	position := s.positions[idx]
	s.positions = append(s.positions[:idx], s.positions[idx+1:]...)

	var pnl decimal.Decimal
	switch position.Side {
	case domain.SideBuy:
		pnl = exitPrice.Sub(position.EntryPrice).Mul(position.Size)
	default:
		pnl = position.EntryPrice.Sub(exitPrice).Mul(position.Size)
	}

	exitCost := position.Size.Mul(exitPrice)
	exitFee := s.fee(exitCost)
	s.balance = s.balance.Add(exitCost.Sub(exitFee))

	return domain.ClosedPosition{
		Position:  position,
		ExitPrice: exitPrice,
		PnL:       pnl.Sub(exitFee),
		ClosedAt:  time.Now().UTC(),
	}, nil
}

// CloseAllPositions cierra todas las posiciones abiertas, siempre la más
// antigua primero, usando el precio de marca del mercado o, si no hay, el
// precio de entrada de la propia posición.
func (s *TradeSimulator) CloseAllPositions(marketPrices map[string]decimal.Decimal) ([]domain.ClosedPosition, error) {
	var closed []domain.ClosedPosition
	for len(s.positions) > 0 {
		position := s.positions[0]
		exitPrice, ok := marketPrices[position.MarketID]
		if !ok {
			exitPrice = position.EntryPrice
		}
		cp, err := s.ClosePosition(position.MarketID, exitPrice)
		if err != nil {
			return nil, err
		}
		closed = append(closed, cp)
	}
	return closed, nil
}

// TotalValue es el mark-to-market de la cuenta: balance más el valor de cada
// posición abierta al precio de marca (o de entrada si no hay marca). Solo
// lectura, no muta nada.
func (s *TradeSimulator) TotalValue(marketPrices map[string]decimal.Decimal) decimal.Decimal {
	total := s.balance
	for _, position := range s.positions {
		price, ok := marketPrices[position.MarketID]
		if !ok {
			price = position.EntryPrice
		}
		total = total.Add(position.Size.Mul(price))
	}
	return total
}

func (s *TradeSimulator) fee(cost decimal.Decimal) decimal.Decimal {
	if s.feeRateBps == 0 {
		return decimal.Zero
	}
	return cost.Mul(decimal.NewFromInt(s.feeRateBps)).Div(bpsDivisor)
}
