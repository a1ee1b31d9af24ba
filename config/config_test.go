package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copybot/config"
)

const validYAML = `
backtest:
  start_date: "2024-01-01"
  end_date: "2024-12-31"
  initial_balance_usdc: 10000
  apply_fees: true
  fee_rate_bps: 50
  slippage_model: linear
  depth_coefficient: 100000

sizing:
  strategy: hybrid
  max_position_size_absolute: 1000
  max_position_size_relative: 0.1
  priority: absolute

feed:
  source: csv
  file: trades.csv
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, 10000.0, cfg.Backtest.InitialBalanceUSDC)
	assert.Equal(t, int64(50), cfg.Backtest.FeeRateBps)
	assert.Equal(t, "hybrid", cfg.Sizing.Strategy)

	// Defaults rellenados
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "copybot.db", cfg.Storage.DSN)
	assert.Equal(t, "https://data-api.polymarket.com", cfg.Feed.APIBase)

	start, end, err := cfg.DateRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestLoad_MalformedDate(t *testing.T) {
	yaml := `
backtest:
  start_date: "01/01/2024"
  end_date: "2024-12-31"
sizing:
  strategy: absolute
  max_position_size_absolute: 1000
  max_position_size_relative: 0.1
feed:
  source: csv
  file: trades.csv
`
	_, err := config.Load(writeConfig(t, yaml))
	assert.ErrorContains(t, err, "start_date")
}

func TestLoad_EndBeforeStart(t *testing.T) {
	yaml := `
backtest:
  start_date: "2024-12-31"
  end_date: "2024-01-01"
sizing:
  strategy: absolute
  max_position_size_absolute: 1000
  max_position_size_relative: 0.1
feed:
  source: csv
  file: trades.csv
`
	_, err := config.Load(writeConfig(t, yaml))
	assert.ErrorContains(t, err, "end_date")
}

func TestLoad_UnknownStrategy(t *testing.T) {
	yaml := `
backtest:
  start_date: "2024-01-01"
  end_date: "2024-12-31"
sizing:
  strategy: kelly
  max_position_size_absolute: 1000
  max_position_size_relative: 0.1
feed:
  source: csv
  file: trades.csv
`
	_, err := config.Load(writeConfig(t, yaml))
	assert.ErrorContains(t, err, "sizing strategy")
}

func TestLoad_RelativeOutOfRange(t *testing.T) {
	yaml := `
backtest:
  start_date: "2024-01-01"
  end_date: "2024-12-31"
sizing:
  strategy: relative
  max_position_size_absolute: 1000
  max_position_size_relative: 1.5
feed:
  source: csv
  file: trades.csv
`
	_, err := config.Load(writeConfig(t, yaml))
	assert.ErrorContains(t, err, "max_position_size_relative")
}

func TestLoad_FeedSourceRequiresDetail(t *testing.T) {
	yaml := `
backtest:
  start_date: "2024-01-01"
  end_date: "2024-12-31"
sizing:
  strategy: absolute
  max_position_size_absolute: 1000
  max_position_size_relative: 0.1
feed:
  source: api
`
	_, err := config.Load(writeConfig(t, yaml))
	assert.ErrorContains(t, err, "at least one market")
}
