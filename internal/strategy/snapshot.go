// Package strategy composes pattern and indicator signals into entry and
// exit decisions, position sizing, and stop management.
package strategy

import (
	"momentum-backtester/internal/analysis/indicators"
)

// EngulfingSignal records the engulfing check at one bar.
type EngulfingSignal struct {
	Bullish bool
	Bearish bool
}

// CandlestickSignals records the single-bar pattern checks at one bar.
type CandlestickSignals struct {
	Doji            bool
	Hammer          bool
	ShootingStar    bool
	BullishMarubozu bool
	BearishMarubozu bool
}

// MomentumSignalGroup records the windowed momentum checks at one bar.
type MomentumSignalGroup struct {
	BullishBreakout bool
	BearishBreakout bool
	Confirmed       bool
	Score           float64
}

// IndicatorSignals records the indicator-derived signals at one bar.
type IndicatorSignals struct {
	indicators.MomentumSignals
	TrendStrength float64
}

// SignalSnapshot captures every input that fed an entry decision, for
// logging and post-run inspection.
type SignalSnapshot struct {
	Engulfing   EngulfingSignal
	Candlestick CandlestickSignals
	Momentum    MomentumSignalGroup
	Indicators  IndicatorSignals
}

// ExitSnapshot captures every input that fed an exit-signal decision.
type ExitSnapshot struct {
	Engulfing     EngulfingSignal
	ShootingStar  bool
	Hammer        bool
	MomentumScore float64
	TrendStrength float64
	Indicators    indicators.MomentumSignals
}
