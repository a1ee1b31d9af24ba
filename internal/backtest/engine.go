package backtest

// engine.go — orquestación del run completo.
//
// Para cada trade histórico: sizing → ejecución → registro en métricas. Los
// errores recuperables (sizing, balance insuficiente) saltan el trade;
// cualquier otro aborta el run. Al agotar la secuencia se cierran todas las
// posiciones restantes y se genera el informe, una sola vez.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/copybot/internal/domain"
	"github.com/alejandrodnm/copybot/internal/ports"
)

// Config son los parámetros numéricos del run, ya convertidos a decimal y
// validados por la capa de configuración.
type Config struct {
	StartDate      time.Time // día UTC inclusive
	EndDate        time.Time // día UTC inclusive
	InitialBalance decimal.Decimal
	ApplyFees      bool
	FeeRateBps     int64
	Slippage       SlippageModel
	Sizing         SizingPolicy
}

// Engine ejecuta la simulación: obtiene la secuencia de trades del feed y la
// conduce por sizer, simulador y métricas. Una instancia sirve para un único
// run y no se comparte.
type Engine struct {
	cfg       Config
	feed      ports.TradeFeed
	simulator *TradeSimulator
	sizer     *PositionSizer
	metrics   *PerformanceMetrics
	trades    []domain.HistoricalTrade
}

// NewEngine crea un engine listo para un run con la config dada.
func NewEngine(cfg Config, feed ports.TradeFeed) *Engine {
	feeRateBps := cfg.FeeRateBps
	if !cfg.ApplyFees {
		feeRateBps = 0
	}

	return &Engine{
		cfg:       cfg,
		feed:      feed,
		simulator: NewTradeSimulator(cfg.InitialBalance, feeRateBps),
		sizer:     NewPositionSizer(cfg.Sizing),
		metrics:   NewPerformanceMetrics(cfg.InitialBalance),
	}
}

// Run ejecuta el backtest completo y devuelve el run con su informe.
func (e *Engine) Run(ctx context.Context) (domain.BacktestRun, error) {
	slog.Info("starting backtest simulation",
		"start", e.cfg.StartDate.Format("2006-01-02"),
		"end", e.cfg.EndDate.Format("2006-01-02"),
		"initial_balance", e.cfg.InitialBalance,
	)

	trades, err := e.feed.Load(ctx)
	if err != nil {
		return domain.BacktestRun{}, fmt.Errorf("backtest.Run: load historical trades: %w", err)
	}
	e.trades = domain.FilterByDateRange(trades, e.cfg.StartDate, e.cfg.EndDate)
	slog.Info("loaded historical trades", "total", len(trades), "in_range", len(e.trades))

	for i, ht := range e.trades {
		if (i+1)%100 == 0 {
			slog.Info("processed trades", "done", i+1, "total", len(e.trades))
		}

		size, err := e.sizer.CalculatePositionSize(ht.Size, e.simulator.Balance())
		if err != nil {
			// Cualquier fallo de sizing salta el trade, no aborta el run.
			slog.Debug("skipping trade", "market", ht.Market, "reason", err)
			continue
		}

		executed, err := e.simulator.Execute(ht.Market, ht.Side, size, ht.Price, e.cfg.Slippage)
		if errors.Is(err, ErrInsufficientBalance) {
			slog.Debug("skipping trade", "market", ht.Market, "reason", err)
			continue
		}
		if err != nil {
			return domain.BacktestRun{}, fmt.Errorf("backtest.Run: execute trade %d: %w", i, err)
		}
		e.metrics.RecordTrade(executed)
	}

	slog.Info("closing remaining positions", "open", len(e.simulator.OpenPositions()))
	closed, err := e.simulator.CloseAllPositions(e.finalMarketPrices())
	if err != nil {
		return domain.BacktestRun{}, fmt.Errorf("backtest.Run: close positions: %w", err)
	}
	for _, cp := range closed {
		e.metrics.RecordClosedPosition(cp)
	}

	results := e.metrics.GenerateReport()
	slog.Info("backtest complete",
		"trades", results.TotalTrades,
		"total_pnl", results.TotalPnL,
		"final_balance", results.FinalBalance,
		"fees", results.TotalFees,
		"slippage_cost", results.TotalSlippage,
	)

	return domain.BacktestRun{
		ID:        uuid.New().String(),
		StartDate: e.cfg.StartDate,
		EndDate:   e.cfg.EndDate,
		RanAt:     time.Now().UTC(),
		Results:   results,
		Closed:    e.metrics.ClosedPositions(),
	}, nil
}

// finalMarketPrices deriva el precio de marca por mercado escaneando la
// secuencia filtrada y quedándose con el *primer* precio visto de cada uno.
// TODO: revisar si debería ser el último precio visto (el más reciente);
// cambiarlo altera el P&L de todos los cierres finales.
func (e *Engine) finalMarketPrices() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal)
	for _, t := range e.trades {
		if _, ok := prices[t.Market]; !ok {
			prices[t.Market] = t.Price
		}
	}
	return prices
}
