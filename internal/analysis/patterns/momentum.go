package patterns

import (
	"momentum-backtester/internal/models"
)

// MomentumDetector detects momentum-driven price patterns that need a
// trailing window of bars for context.
type MomentumDetector struct {
	breakoutLookback       int
	volumeThreshold        float64 // Multiple of average volume for confirmation
	consolidationThreshold float64 // Max range as fraction of price
}

// NewMomentumDetector creates a detector with the given settings.
func NewMomentumDetector(breakoutLookback int, volumeThreshold, consolidationThreshold float64) *MomentumDetector {
	return &MomentumDetector{
		breakoutLookback:       breakoutLookback,
		volumeThreshold:        volumeThreshold,
		consolidationThreshold: consolidationThreshold,
	}
}

// DefaultMomentumDetector creates a detector with standard settings.
func DefaultMomentumDetector() *MomentumDetector {
	return NewMomentumDetector(20, 1.5, 0.2)
}

// IsBreakoutCandle checks whether the bar at idx breaks out of a trailing
// consolidation. The candle body must exceed twice the average body over the
// lookback window, the window's high-low range must stay under the
// consolidation threshold, and the close must clear the window's extreme in
// the candle's direction. The window excludes the current bar.
func (d *MomentumDetector) IsBreakoutCandle(candles []models.Candle, idx int) (bullish, bearish bool) {
	if idx < d.breakoutLookback || idx >= len(candles) {
		return false, false
	}

	window := candles[idx-d.breakoutLookback : idx]

	var sizeSum, priceSum float64
	lookbackHigh := window[0].High
	lookbackLow := window[0].Low
	for _, c := range window {
		sizeSum += c.Body()
		priceSum += c.Close
		if c.High > lookbackHigh {
			lookbackHigh = c.High
		}
		if c.Low < lookbackLow {
			lookbackLow = c.Low
		}
	}
	avgSize := sizeSum / float64(len(window))
	avgPrice := priceSum / float64(len(window))

	curr := candles[idx]
	isLargeCandle := curr.Body() > 2*avgSize
	isConsolidation := lookbackHigh-lookbackLow < d.consolidationThreshold*avgPrice

	if !isLargeCandle || !isConsolidation {
		return false, false
	}

	bullish = curr.IsBullish() && curr.Close > lookbackHigh
	bearish = curr.IsBearish() && curr.Close < lookbackLow

	return bullish, bearish
}

// IsMomentumConfirmed checks whether the bar at idx carries volume above the
// threshold multiple of the trailing 20-bar average.
func (d *MomentumDetector) IsMomentumConfirmed(candles []models.Candle, idx int) bool {
	if idx < 20 || idx >= len(candles) {
		return false
	}

	var volSum float64
	for _, c := range candles[idx-20 : idx] {
		volSum += float64(c.Volume)
	}
	avgVolume := volSum / 20

	return float64(candles[idx].Volume) > d.volumeThreshold*avgVolume
}

// MomentumScore combines 5-bar and 20-bar returns into a score in [-1, 1].
// Positive values indicate bullish momentum. Returns 0 before 20 bars of
// history exist.
func (d *MomentumDetector) MomentumScore(candles []models.Candle, idx int) float64 {
	if idx < 20 || idx >= len(candles) {
		return 0
	}

	curr := candles[idx].Close
	shortRef := candles[idx-5].Close
	mediumRef := candles[idx-20].Close
	if shortRef == 0 || mediumRef == 0 {
		return 0
	}

	shortTerm := (curr - shortRef) / shortRef
	mediumTerm := (curr - mediumRef) / mediumRef

	score := 0.7*shortTerm + 0.3*mediumTerm

	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
