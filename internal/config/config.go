// Package config provides configuration management for the backtester.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"momentum-backtester/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Indicators IndicatorConfig `mapstructure:"indicators"`
	Patterns   PatternConfig   `mapstructure:"patterns"`
	Risk       RiskConfig      `mapstructure:"risk"`
	Backtest   BacktestConfig  `mapstructure:"backtest"`
	Strategy   StrategyConfig  `mapstructure:"strategy"`
}

// IndicatorConfig holds indicator calculation settings.
type IndicatorConfig struct {
	RSIPeriod     int     `mapstructure:"rsi_period"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
	RSIOversold   float64 `mapstructure:"rsi_oversold"`

	MACDFast   int `mapstructure:"macd_fast"`
	MACDSlow   int `mapstructure:"macd_slow"`
	MACDSignal int `mapstructure:"macd_signal"`

	BBPeriod int     `mapstructure:"bb_period"`
	BBStd    float64 `mapstructure:"bb_std"`

	ATRPeriod     int     `mapstructure:"atr_period"`
	ATRMultiplier float64 `mapstructure:"atr_multiplier"`

	VolatilityLookback int     `mapstructure:"volatility_lookback"`
	StdDevPeriod       int     `mapstructure:"std_dev_period"`
	RegimeLookback     int     `mapstructure:"regime_lookback"`
	ATRROCSpan         int     `mapstructure:"atr_roc_span"`
	MinimumATR         float64 `mapstructure:"minimum_atr"`
}

// PatternConfig holds candlestick and momentum pattern thresholds.
type PatternConfig struct {
	DojiThreshold          float64 `mapstructure:"doji_threshold"`
	MarubozuThreshold      float64 `mapstructure:"marubozu_threshold"`
	BreakoutLookback       int     `mapstructure:"breakout_lookback"`
	VolumeThreshold        float64 `mapstructure:"volume_threshold"`
	ConsolidationThreshold float64 `mapstructure:"consolidation_threshold"`
	TrendWindow            int     `mapstructure:"trend_window"`
}

// RiskConfig holds position sizing and risk management settings.
type RiskConfig struct {
	InitialCapital  float64 `mapstructure:"initial_capital"`
	PositionSize    float64 `mapstructure:"position_size"`
	MaxPositionSize float64 `mapstructure:"max_position_size"`
	MinSizeFactor   float64 `mapstructure:"min_size_factor"`
	MaxSizeFactor   float64 `mapstructure:"max_size_factor"`

	StopLossATR   float64 `mapstructure:"stop_loss_atr"`
	TakeProfitATR float64 `mapstructure:"take_profit_atr"`

	// Move-to-breakeven activation as a fraction of the target distance.
	// Declared in configuration; the engine exposes the check but does not
	// act on it when closing positions.
	TrailingStopActivation float64 `mapstructure:"trailing_stop_activation"`

	// Declared but not enforced by the engine.
	MaxTradesPerDay int `mapstructure:"max_trades_per_day"`
}

// BacktestConfig holds run-level settings.
type BacktestConfig struct {
	Symbols        []string `mapstructure:"symbols"`
	StartDate      string   `mapstructure:"start_date"`
	EndDate        string   `mapstructure:"end_date"`
	DataDir        string   `mapstructure:"data_dir"`
	CommissionRate float64  `mapstructure:"commission_rate"`
	Slippage       float64  `mapstructure:"slippage"`
}

// StrategyConfig holds strategy-level settings.
type StrategyConfig struct {
	TradeDirection   string  `mapstructure:"trade_direction"` // long, short, both
	MinTrendStrength float64 `mapstructure:"min_trend_strength"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Indicators: IndicatorConfig{
			RSIPeriod:          14,
			RSIOverbought:      70,
			RSIOversold:        30,
			MACDFast:           12,
			MACDSlow:           26,
			MACDSignal:         9,
			BBPeriod:           20,
			BBStd:              2.0,
			ATRPeriod:          14,
			ATRMultiplier:      2.0,
			VolatilityLookback: 20,
			StdDevPeriod:       20,
			RegimeLookback:     100,
			ATRROCSpan:         5,
			MinimumATR:         0.001,
		},
		Patterns: PatternConfig{
			DojiThreshold:          0.1,
			MarubozuThreshold:      0.1,
			BreakoutLookback:       20,
			VolumeThreshold:        1.5,
			ConsolidationThreshold: 0.2,
			TrendWindow:            50,
		},
		Risk: RiskConfig{
			InitialCapital:         100000,
			PositionSize:           0.1,
			MaxPositionSize:        0.2,
			MinSizeFactor:          0.25,
			MaxSizeFactor:          2.0,
			StopLossATR:            2.0,
			TakeProfitATR:          4.0,
			TrailingStopActivation: 0.5,
			MaxTradesPerDay:        3,
		},
		Backtest: BacktestConfig{
			Symbols:        []string{"SPY"},
			DataDir:        "data",
			CommissionRate: 0.001,
			Slippage:       0.001,
		},
		Strategy: StrategyConfig{
			TradeDirection:   "both",
			MinTrendStrength: 0.3,
		},
	}
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/momentum-backtester"
	}
	return filepath.Join(home, ".config", "momentum-backtester")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template and run on defaults
			if err := createTemplateConfig(configDir); err != nil {
				return nil, fmt.Errorf("creating config template: %w", err)
			}
		} else {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKTESTER_DATA_DIR"); v != "" {
		cfg.Backtest.DataDir = v
	}
	if v := os.Getenv("BACKTESTER_TRADE_DIRECTION"); v != "" {
		cfg.Strategy.TradeDirection = v
	}
}

// Validate validates the configuration. Failures are fatal at startup.
func (c *Config) Validate() error {
	if c.Risk.PositionSize <= 0 || c.Risk.PositionSize > c.Risk.MaxPositionSize {
		return fmt.Errorf("position_size must be positive and not exceed max_position_size")
	}
	if c.Risk.StopLossATR <= 0 {
		return fmt.Errorf("stop_loss_atr must be positive")
	}
	if c.Risk.TakeProfitATR <= c.Risk.StopLossATR {
		return fmt.Errorf("take_profit_atr must be greater than stop_loss_atr")
	}
	if c.Risk.MaxTradesPerDay < 0 {
		return fmt.Errorf("max_trades_per_day must be non-negative")
	}
	switch models.TradeDirection(c.Strategy.TradeDirection) {
	case models.DirectionLong, models.DirectionShort, models.DirectionBoth:
	default:
		return fmt.Errorf("invalid trade_direction: %s (must be 'long', 'short', or 'both')", c.Strategy.TradeDirection)
	}
	if c.Indicators.RSIPeriod <= 0 || c.Indicators.ATRPeriod <= 0 ||
		c.Indicators.BBPeriod <= 0 || c.Indicators.MACDFast <= 0 ||
		c.Indicators.MACDSlow <= 0 || c.Indicators.MACDSignal <= 0 {
		return fmt.Errorf("indicator periods must be positive")
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return fmt.Errorf("macd_fast must be less than macd_slow")
	}
	return nil
}

// Direction returns the configured trade direction.
func (c *Config) Direction() models.TradeDirection {
	return models.TradeDirection(c.Strategy.TradeDirection)
}
