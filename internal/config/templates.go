package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Momentum Backtester Configuration

[indicators]
# RSI settings
rsi_period = 14
rsi_overbought = 70.0
rsi_oversold = 30.0

# MACD settings
macd_fast = 12
macd_slow = 26
macd_signal = 9

# Bollinger Bands settings
bb_period = 20
bb_std = 2.0

# ATR settings
atr_period = 14
atr_multiplier = 2.0

# Volatility settings
volatility_lookback = 20
std_dev_period = 20
regime_lookback = 100
atr_roc_span = 5
minimum_atr = 0.001

[patterns]
# Candlestick pattern thresholds
doji_threshold = 0.1
marubozu_threshold = 0.1

# Momentum pattern settings
breakout_lookback = 20
volume_threshold = 1.5
consolidation_threshold = 0.2
trend_window = 50

[risk]
initial_capital = 100000.0
# Base position size as a fraction of capital per trade
position_size = 0.1
max_position_size = 0.2
# Bounds on the volatility sizing adjustment
min_size_factor = 0.25
max_size_factor = 2.0

# Stop loss and take profit as ATR multiples
stop_loss_atr = 2.0
take_profit_atr = 4.0
# Breakeven activation as a fraction of the target distance
trailing_stop_activation = 0.5
max_trades_per_day = 3

[backtest]
symbols = ["SPY"]
# Dates in YYYY-MM-DD format; empty means the full data range
start_date = ""
end_date = ""
# Directory containing <symbol>.csv files
data_dir = "data"
commission_rate = 0.001
slippage = 0.001

[strategy]
# Trade direction: "long", "short", or "both"
trade_direction = "both"
min_trend_strength = 0.3
`

// createTemplateConfig writes a template config.toml to the config directory.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil // Already exists
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
