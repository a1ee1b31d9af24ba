package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Sizing   SizingConfig   `yaml:"sizing"`
	Feed     FeedConfig     `yaml:"feed"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla la simulación: ventana, balance, fees y slippage.
type BacktestConfig struct {
	StartDate          string  `yaml:"start_date"` // YYYY-MM-DD, UTC
	EndDate            string  `yaml:"end_date"`   // YYYY-MM-DD, UTC
	InitialBalanceUSDC float64 `yaml:"initial_balance_usdc"`
	ApplyFees          bool    `yaml:"apply_fees"`
	FeeRateBps         int64   `yaml:"fee_rate_bps"`
	SlippageModel      string  `yaml:"slippage_model"` // linear | percentage; otro → linear por defecto
	DepthCoefficient   float64 `yaml:"depth_coefficient"`
	SlippagePercentage float64 `yaml:"slippage_percentage"`
}

// SizingConfig controla los límites de tamaño de posición.
type SizingConfig struct {
	Strategy    string  `yaml:"strategy"` // absolute | relative | hybrid
	MaxAbsolute float64 `yaml:"max_position_size_absolute"`
	MaxRelative float64 `yaml:"max_position_size_relative"` // fracción en (0, 1]
	Priority    string  `yaml:"priority"`                   // absolute | relative; inerte bajo hybrid
}

// FeedConfig controla de dónde salen los trades históricos.
type FeedConfig struct {
	Source  string   `yaml:"source"` // csv | api
	File    string   `yaml:"file"`   // ruta al CSV en modo csv
	APIBase string   `yaml:"api_base"`
	Markets []string `yaml:"markets"` // condition IDs a descargar en modo api
}

// StorageConfig controla dónde se persisten los runs.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe, aplica defaults y valida. Cualquier error de validación es fatal:
// se devuelve antes de que arranque ningún paso de simulación.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DateRange devuelve la ventana del backtest ya parseada. Solo es seguro
// tras Validate.
func (c *Config) DateRange() (start, end time.Time, err error) {
	start, err = time.ParseInLocation("2006-01-02", c.Backtest.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("config.DateRange: start_date %q: %w", c.Backtest.StartDate, err)
	}
	end, err = time.ParseInLocation("2006-01-02", c.Backtest.EndDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("config.DateRange: end_date %q: %w", c.Backtest.EndDate, err)
	}
	return start, end, nil
}

// Validate comprueba la configuración completa. Los fallos aquí equivalen a
// un error de configuración fatal: el run no debe arrancar.
func (c *Config) Validate() error {
	start, end, err := c.DateRange()
	if err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("config.Validate: end_date %s before start_date %s", c.Backtest.EndDate, c.Backtest.StartDate)
	}

	if c.Backtest.InitialBalanceUSDC <= 0 {
		return fmt.Errorf("config.Validate: initial_balance_usdc must be > 0, got %v", c.Backtest.InitialBalanceUSDC)
	}
	if c.Backtest.FeeRateBps < 0 {
		return fmt.Errorf("config.Validate: fee_rate_bps must be >= 0, got %d", c.Backtest.FeeRateBps)
	}

	switch c.Sizing.Strategy {
	case "absolute", "relative", "hybrid":
	default:
		return fmt.Errorf("config.Validate: unknown sizing strategy %q", c.Sizing.Strategy)
	}
	switch c.Sizing.Priority {
	case "absolute", "relative":
	default:
		return fmt.Errorf("config.Validate: sizing priority must be absolute or relative, got %q", c.Sizing.Priority)
	}
	if c.Sizing.MaxAbsolute <= 0 {
		return fmt.Errorf("config.Validate: max_position_size_absolute must be > 0, got %v", c.Sizing.MaxAbsolute)
	}
	if c.Sizing.MaxRelative <= 0 || c.Sizing.MaxRelative > 1 {
		return fmt.Errorf("config.Validate: max_position_size_relative must be in (0, 1], got %v", c.Sizing.MaxRelative)
	}

	switch c.Feed.Source {
	case "csv":
		if c.Feed.File == "" {
			return fmt.Errorf("config.Validate: feed source csv requires a file path")
		}
	case "api":
		if len(c.Feed.Markets) == 0 {
			return fmt.Errorf("config.Validate: feed source api requires at least one market")
		}
	default:
		return fmt.Errorf("config.Validate: unknown feed source %q", c.Feed.Source)
	}

	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están
// presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("COPYBOT_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("COPYBOT_INITIAL_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.InitialBalanceUSDC = f
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Backtest.InitialBalanceUSDC == 0 {
		cfg.Backtest.InitialBalanceUSDC = 10000
	}
	if cfg.Backtest.DepthCoefficient <= 0 {
		cfg.Backtest.DepthCoefficient = 100000
	}
	if cfg.Sizing.Strategy == "" {
		cfg.Sizing.Strategy = "hybrid"
	}
	if cfg.Sizing.Priority == "" {
		cfg.Sizing.Priority = "absolute"
	}
	if cfg.Sizing.MaxAbsolute == 0 {
		cfg.Sizing.MaxAbsolute = 1000
	}
	if cfg.Sizing.MaxRelative == 0 {
		cfg.Sizing.MaxRelative = 0.1
	}
	if cfg.Feed.Source == "" {
		cfg.Feed.Source = "csv"
	}
	if cfg.Feed.APIBase == "" {
		cfg.Feed.APIBase = "https://data-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "copybot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
