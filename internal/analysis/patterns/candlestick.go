// Package patterns provides candlestick and momentum pattern detection.
// All detectors are pure predicates over bar geometry at a given index.
package patterns

import (
	"momentum-backtester/internal/models"
)

// CandlestickDetector detects candlestick patterns in price data.
type CandlestickDetector struct {
	dojiThreshold     float64 // Body size as fraction of range for doji
	marubozuThreshold float64 // Wick size as fraction of body for marubozu
}

// NewCandlestickDetector creates a detector with the given thresholds.
func NewCandlestickDetector(dojiThreshold, marubozuThreshold float64) *CandlestickDetector {
	return &CandlestickDetector{
		dojiThreshold:     dojiThreshold,
		marubozuThreshold: marubozuThreshold,
	}
}

// DefaultCandlestickDetector creates a detector with standard thresholds.
func DefaultCandlestickDetector() *CandlestickDetector {
	return NewCandlestickDetector(0.1, 0.1)
}

// IsEngulfing checks for bullish and bearish engulfing patterns at idx.
// The prior bar must close against the current bar's direction and the
// current body must fully contain the prior body. The two results are
// mutually exclusive by construction.
func (d *CandlestickDetector) IsEngulfing(candles []models.Candle, idx int) (bullish, bearish bool) {
	if idx < 1 || idx >= len(candles) {
		return false, false
	}

	prev := candles[idx-1]
	curr := candles[idx]

	bullish = prev.Close < prev.Open && // Previous red candle
		curr.Close > curr.Open && // Current green candle
		curr.Open < prev.Close && // Current opens below previous close
		curr.Close > prev.Open // Current closes above previous open

	bearish = prev.Close > prev.Open &&
		curr.Close < curr.Open &&
		curr.Open > prev.Close &&
		curr.Close < prev.Open

	return bullish, bearish
}

// IsDoji checks whether the body at idx is negligible relative to the range.
func (d *CandlestickDetector) IsDoji(candles []models.Candle, idx int) bool {
	if idx < 0 || idx >= len(candles) {
		return false
	}

	c := candles[idx]
	return c.Body() <= c.Range()*d.dojiThreshold
}

// IsHammer checks for a hammer: long lower wick, negligible upper wick.
func (d *CandlestickDetector) IsHammer(candles []models.Candle, idx int) bool {
	if idx < 0 || idx >= len(candles) {
		return false
	}

	c := candles[idx]
	body := c.Body()
	lowerWick := fmin(c.Open, c.Close) - c.Low
	upperWick := c.High - fmax(c.Open, c.Close)

	return lowerWick > 2*body && upperWick < 0.1*body
}

// IsShootingStar checks for a shooting star: long upper wick, negligible
// lower wick.
func (d *CandlestickDetector) IsShootingStar(candles []models.Candle, idx int) bool {
	if idx < 0 || idx >= len(candles) {
		return false
	}

	c := candles[idx]
	body := c.Body()
	lowerWick := fmin(c.Open, c.Close) - c.Low
	upperWick := c.High - fmax(c.Open, c.Close)

	return upperWick > 2*body && lowerWick < 0.1*body
}

// IsMarubozu checks for a strong trend candle whose body covers at least 90%
// of the range with negligible wicks on the trend side. The two results are
// mutually exclusive by construction.
func (d *CandlestickDetector) IsMarubozu(candles []models.Candle, idx int) (bullish, bearish bool) {
	if idx < 0 || idx >= len(candles) {
		return false, false
	}

	c := candles[idx]
	body := c.Body()

	if body < c.Range()*0.9 {
		return false, false
	}

	bullish = c.Close > c.Open &&
		c.High-c.Close <= d.marubozuThreshold*body &&
		c.Open-c.Low <= d.marubozuThreshold*body

	bearish = c.Close < c.Open &&
		c.High-c.Open <= d.marubozuThreshold*body &&
		c.Close-c.Low <= d.marubozuThreshold*body

	return bullish, bearish
}

func fmax(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func fmin(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
