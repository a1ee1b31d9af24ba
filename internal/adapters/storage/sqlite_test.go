package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copybot/internal/adapters/storage"
	"github.com/alejandrodnm/copybot/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func makeRun(pnl string) domain.BacktestRun {
	now := time.Now().UTC().Truncate(time.Second)
	pos := domain.Position{
		ID:         uuid.New().String(),
		MarketID:   "0xmarket1",
		EntryPrice: dec("0.51"),
		Size:       dec("1000"),
		Side:       domain.SideBuy,
		OpenedAt:   now,
	}
	return domain.BacktestRun{
		ID:        uuid.New().String(),
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		RanAt:     now,
		Results: domain.BacktestResults{
			TotalTrades:    1,
			WinningTrades:  1,
			WinRate:        dec("100"),
			TotalPnL:       dec(pnl),
			ROI:            dec("0.9"),
			AvgWin:         dec(pnl),
			AvgLoss:        dec("0"),
			ProfitFactor:   dec("1000"),
			MaxDrawdown:    dec("0"),
			SharpeRatio:    dec("0"),
			InitialBalance: dec("10000"),
			FinalBalance:   dec("10000").Add(dec(pnl)),
			TotalFees:      dec("0"),
			TotalSlippage:  dec("10"),
		},
		Closed: []domain.ClosedPosition{{
			Position:  pos,
			ExitPrice: dec("0.6"),
			PnL:       dec(pnl),
			ClosedAt:  now,
		}},
	}
}

func TestSQLiteStore_SaveAndGetRuns(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	run := makeRun("90")
	require.NoError(t, db.SaveRun(context.Background(), run))

	runs, err := db.GetRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.StartDate, got.StartDate)
	assert.Equal(t, run.EndDate, got.EndDate)

	// Los decimales sobreviven el round-trip sin pérdida
	assert.True(t, got.Results.TotalPnL.Equal(dec("90")), "got %s", got.Results.TotalPnL)
	assert.True(t, got.Results.FinalBalance.Equal(dec("10090")), "got %s", got.Results.FinalBalance)
	assert.True(t, got.Results.ProfitFactor.Equal(dec("1000")))
	assert.Equal(t, 1, got.Results.TotalTrades)
}

func TestSQLiteStore_GetClosedPositions(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	run := makeRun("90")
	require.NoError(t, db.SaveRun(context.Background(), run))

	closed, err := db.GetClosedPositions(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, closed, 1)

	cp := closed[0]
	assert.Equal(t, run.Closed[0].Position.ID, cp.Position.ID)
	assert.Equal(t, "0xmarket1", cp.Position.MarketID)
	assert.Equal(t, domain.SideBuy, cp.Position.Side)
	assert.True(t, cp.Position.EntryPrice.Equal(dec("0.51")))
	assert.True(t, cp.ExitPrice.Equal(dec("0.6")))
	assert.True(t, cp.PnL.Equal(dec("90")))
}

func TestSQLiteStore_GetRuns_OrderAndLimit(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	old := makeRun("10")
	old.RanAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	recent := makeRun("20")

	require.NoError(t, db.SaveRun(context.Background(), old))
	require.NoError(t, db.SaveRun(context.Background(), recent))

	runs, err := db.GetRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recent.ID, runs[0].ID)
}

func TestSQLiteStore_GetClosedPositions_UnknownRun(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	closed, err := db.GetClosedPositions(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, closed)
}
