package strategy

import (
	"momentum-backtester/internal/analysis/indicators"
	"momentum-backtester/internal/analysis/patterns"
	"momentum-backtester/internal/config"
	"momentum-backtester/internal/models"
)

const warmupBars = 20

// Decision is the outcome of an entry check.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionLong
	DecisionShort
)

func (d Decision) String() string {
	switch d {
	case DecisionLong:
		return "long"
	case DecisionShort:
		return "short"
	default:
		return "none"
	}
}

// EntryRules combines pattern and indicator signals into entry decisions
// and sizes new positions.
type EntryRules struct {
	candles  *patterns.CandlestickDetector
	momentum *patterns.MomentumDetector

	trendWindow      int
	minTrendStrength float64

	basePosition       float64
	minSizeFactor      float64
	maxSizeFactor      float64
	volatilityLookback int
}

// NewEntryRules creates entry rules from the application configuration.
func NewEntryRules(cfg *config.Config) *EntryRules {
	return &EntryRules{
		candles: patterns.NewCandlestickDetector(
			cfg.Patterns.DojiThreshold,
			cfg.Patterns.MarubozuThreshold,
		),
		momentum: patterns.NewMomentumDetector(
			cfg.Patterns.BreakoutLookback,
			cfg.Patterns.VolumeThreshold,
			cfg.Patterns.ConsolidationThreshold,
		),
		trendWindow:        cfg.Patterns.TrendWindow,
		minTrendStrength:   cfg.Strategy.MinTrendStrength,
		basePosition:       cfg.Risk.PositionSize,
		minSizeFactor:      cfg.Risk.MinSizeFactor,
		maxSizeFactor:      cfg.Risk.MaxSizeFactor,
		volatilityLookback: cfg.Indicators.VolatilityLookback,
	}
}

// CheckEntry evaluates all entry conditions at idx and returns the decision
// together with a snapshot of every signal that fed it. When both directions
// fire on the same bar, long wins.
func (r *EntryRules) CheckEntry(candles []models.Candle, series *indicators.Series, idx int) (Decision, SignalSnapshot) {
	var snap SignalSnapshot
	if idx < warmupBars {
		return DecisionNone, snap
	}

	bullEngulf, bearEngulf := r.candles.IsEngulfing(candles, idx)
	snap.Engulfing = EngulfingSignal{Bullish: bullEngulf, Bearish: bearEngulf}

	isDoji := r.candles.IsDoji(candles, idx)
	isHammer := r.candles.IsHammer(candles, idx)
	isShootingStar := r.candles.IsShootingStar(candles, idx)
	bullMarubozu, bearMarubozu := r.candles.IsMarubozu(candles, idx)
	snap.Candlestick = CandlestickSignals{
		Doji:            isDoji,
		Hammer:          isHammer,
		ShootingStar:    isShootingStar,
		BullishMarubozu: bullMarubozu,
		BearishMarubozu: bearMarubozu,
	}

	bullBreakout, bearBreakout := r.momentum.IsBreakoutCandle(candles, idx)
	confirmed := r.momentum.IsMomentumConfirmed(candles, idx)
	score := r.momentum.MomentumScore(candles, idx)
	snap.Momentum = MomentumSignalGroup{
		BullishBreakout: bullBreakout,
		BearishBreakout: bearBreakout,
		Confirmed:       confirmed,
		Score:           score,
	}

	sigs := series.Signals(candles, idx)
	trend := indicators.TrendStrength(candles, idx, r.trendWindow)
	snap.Indicators = IndicatorSignals{MomentumSignals: sigs, TrendStrength: trend}

	bullishEntry := (bullEngulf || (isDoji && score > 0) ||
		isHammer || bullMarubozu || bullBreakout) &&
		confirmed &&
		trend > r.minTrendStrength &&
		!sigs.RSIOverbought

	bearishEntry := (bearEngulf || (isDoji && score < 0) ||
		isShootingStar || bearMarubozu || bearBreakout) &&
		confirmed &&
		trend < -r.minTrendStrength &&
		!sigs.RSIOversold

	switch {
	case bullishEntry:
		return DecisionLong, snap
	case bearishEntry:
		return DecisionShort, snap
	default:
		return DecisionNone, snap
	}
}

// PositionSize sizes a new position as a fraction of equity. The base size
// is scaled down when current volatility runs above its trailing average and
// up when below, adjusted for the volatility regime, then scaled by momentum
// strength.
func (r *EntryRules) PositionSize(candles []models.Candle, series *indicators.Series, idx int) float64 {
	score := r.momentum.MomentumScore(candles, idx)
	if score < 0 {
		score = -score
	}
	momentumFactor := 0.5 + score*0.5

	return r.volatilityAdjustedSize(series, idx) * momentumFactor
}

func (r *EntryRules) volatilityAdjustedSize(series *indicators.Series, idx int) float64 {
	if idx < r.volatilityLookback || idx >= series.Len() {
		return r.basePosition
	}

	currentVol := series.HistVol[idx]
	if !indicators.Defined(currentVol) {
		return r.basePosition
	}

	var sum float64
	var count int
	for _, v := range series.HistVol[idx-r.volatilityLookback : idx] {
		if indicators.Defined(v) {
			sum += v
			count++
		}
	}
	if count == 0 {
		return r.basePosition
	}
	avgVol := sum / float64(count)

	if currentVol < 0.001 {
		currentVol = 0.001
	}
	volRatio := avgVol / currentVol

	adjusted := r.basePosition * volRatio * regimeSizeAdjustment(series.RegimeAt(idx))

	if adjusted > r.maxSizeFactor {
		return r.maxSizeFactor
	}
	if adjusted < r.minSizeFactor {
		return r.minSizeFactor
	}
	return adjusted
}

// regimeSizeAdjustment scales position size by volatility regime. An
// undefined regime is treated as normal.
func regimeSizeAdjustment(regime indicators.Regime) float64 {
	switch regime {
	case indicators.RegimeLow:
		return 1.2
	case indicators.RegimeHigh:
		return 0.8
	default:
		return 1.0
	}
}
