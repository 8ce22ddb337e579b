package strategy

import (
	"momentum-backtester/internal/analysis/indicators"
	"momentum-backtester/internal/analysis/patterns"
	"momentum-backtester/internal/config"
	"momentum-backtester/internal/models"
)

// ExitRules evaluates discretionary exit signals and manages stop levels
// for open positions.
type ExitRules struct {
	candles  *patterns.CandlestickDetector
	momentum *patterns.MomentumDetector

	trendWindow int

	stopMultiplier float64 // Base ATR multiple for the stop distance
	minimumATR     float64
	trailingFactor float64 // Widening factor applied to the trailing distance
	activation     float64 // Fraction of target distance that arms breakeven
}

// NewExitRules creates exit rules from the application configuration.
func NewExitRules(cfg *config.Config) *ExitRules {
	return &ExitRules{
		candles: patterns.NewCandlestickDetector(
			cfg.Patterns.DojiThreshold,
			cfg.Patterns.MarubozuThreshold,
		),
		momentum: patterns.NewMomentumDetector(
			cfg.Patterns.BreakoutLookback,
			cfg.Patterns.VolumeThreshold,
			cfg.Patterns.ConsolidationThreshold,
		),
		trendWindow:    cfg.Patterns.TrendWindow,
		stopMultiplier: cfg.Risk.StopLossATR,
		minimumATR:     cfg.Indicators.MinimumATR,
		trailingFactor: 1.5,
		activation:     cfg.Risk.TrailingStopActivation,
	}
}

// CheckExit evaluates discretionary exit signals at idx for a position on
// the given side. Stop and target hits are handled by the engine; this
// covers pattern reversals, momentum reversals, MACD crosses against the
// position, and RSI extremes against the position.
func (r *ExitRules) CheckExit(candles []models.Candle, series *indicators.Series, idx int, side models.Side) (bool, ExitSnapshot) {
	var snap ExitSnapshot
	if idx < 1 {
		return false, snap
	}

	bullEngulf, bearEngulf := r.candles.IsEngulfing(candles, idx)
	snap.Engulfing = EngulfingSignal{Bullish: bullEngulf, Bearish: bearEngulf}
	snap.ShootingStar = r.candles.IsShootingStar(candles, idx)
	snap.Hammer = r.candles.IsHammer(candles, idx)

	snap.MomentumScore = r.momentum.MomentumScore(candles, idx)
	snap.TrendStrength = indicators.TrendStrength(candles, idx, r.trendWindow)
	snap.Indicators = series.Signals(candles, idx)

	if side == models.SideLong {
		return bearEngulf ||
			snap.ShootingStar ||
			(snap.MomentumScore < -0.3 && snap.TrendStrength < 0) ||
			snap.Indicators.MACDBearishCross ||
			snap.Indicators.RSIOverbought, snap
	}

	return bullEngulf ||
		snap.Hammer ||
		(snap.MomentumScore > 0.3 && snap.TrendStrength > 0) ||
		snap.Indicators.MACDBullishCross ||
		snap.Indicators.RSIOversold, snap
}

// DynamicStops returns the stop and take-profit distances at idx based on
// ATR, widened or tightened by the volatility regime. The target is always
// twice the stop. An undefined regime is treated as normal.
func (r *ExitRules) DynamicStops(series *indicators.Series, idx int) (stopDistance, targetDistance float64) {
	atr := r.minimumATR
	if idx >= 0 && idx < series.Len() {
		if v := series.ATR[idx]; indicators.Defined(v) && v > atr {
			atr = v
		}
	}

	stopDistance = atr * r.stopMultiplier * regimeStopMultiplier(series.RegimeAt(idx))
	targetDistance = stopDistance * 2

	return stopDistance, targetDistance
}

// TrailingStop returns the updated trailing stop for a position. The raw
// level trails the close by 1.5x the stop distance, never gives back more
// than 1% against the entry, and never loosens from the previous level.
func (r *ExitRules) TrailingStop(candles []models.Candle, series *indicators.Series, idx int, side models.Side, entryPrice, prevStop float64) float64 {
	if idx < 1 || idx >= len(candles) {
		return prevStop
	}

	stopDistance, _ := r.DynamicStops(series, idx)
	price := candles[idx].Close

	if side == models.SideLong {
		level := price - stopDistance*r.trailingFactor
		if floor := entryPrice * 0.99; level < floor {
			level = floor
		}
		if level < prevStop {
			return prevStop
		}
		return level
	}

	level := price + stopDistance*r.trailingFactor
	if ceil := entryPrice * 1.01; level > ceil {
		level = ceil
	}
	if level > prevStop {
		return prevStop
	}
	return level
}

// ShouldMoveToBreakeven reports whether price has covered enough of the
// target distance to justify moving the stop to the entry price.
func (r *ExitRules) ShouldMoveToBreakeven(candles []models.Candle, series *indicators.Series, idx int, side models.Side, entryPrice float64) bool {
	if idx < 1 || idx >= len(candles) {
		return false
	}

	_, targetDistance := r.DynamicStops(series, idx)
	price := candles[idx].Close

	if side == models.SideLong {
		return price >= entryPrice+targetDistance*r.activation
	}
	return price <= entryPrice-targetDistance*r.activation
}

// regimeStopMultiplier scales the stop distance by volatility regime. Stops
// widen relative to ATR in calm markets and tighten when volatility runs
// high. An undefined regime is treated as normal.
func regimeStopMultiplier(regime indicators.Regime) float64 {
	switch regime {
	case indicators.RegimeLow:
		return 1.5
	case indicators.RegimeHigh:
		return 0.75
	default:
		return 1.0
	}
}
