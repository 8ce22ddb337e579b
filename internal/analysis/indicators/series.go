package indicators

import (
	"math"

	"momentum-backtester/internal/models"
)

// Regime is a discrete classification of current volatility relative to its
// recent historical distribution.
type Regime int

const (
	RegimeUndefined Regime = iota - 1
	RegimeLow
	RegimeNormal
	RegimeHigh
)

func (r Regime) String() string {
	switch r {
	case RegimeLow:
		return "low"
	case RegimeNormal:
		return "normal"
	case RegimeHigh:
		return "high"
	default:
		return "undefined"
	}
}

// Params holds the calculation settings for a full indicator pass.
type Params struct {
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64

	MACDFast   int
	MACDSlow   int
	MACDSignal int

	BBPeriod int
	BBStd    float64

	ATRPeriod          int
	VolatilityLookback int
	StdDevPeriod       int
	RegimeLookback     int
	ATRROCSpan         int

	TradingDays int
}

// DefaultParams returns the standard parameter set.
func DefaultParams() Params {
	return Params{
		RSIPeriod:          14,
		RSIOverbought:      70,
		RSIOversold:        30,
		MACDFast:           12,
		MACDSlow:           26,
		MACDSignal:         9,
		BBPeriod:           20,
		BBStd:              2.0,
		ATRPeriod:          14,
		VolatilityLookback: 20,
		StdDevPeriod:       20,
		RegimeLookback:     100,
		ATRROCSpan:         5,
		TradingDays:        252,
	}
}

// Series holds per-bar indicator values aligned to the bar sequence,
// computed in one batch pass. Values are NaN before each indicator's
// warm-up window; the regime is RegimeUndefined before its lookback fills.
// The series is read-only to all consumers.
type Series struct {
	params Params

	RSI        []float64
	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64

	BBUpper  []float64
	BBMiddle []float64
	BBLower  []float64

	ATR     []float64
	ATRPct  []float64
	HistVol []float64

	ATRMA    []float64
	ATRStd   []float64
	ATRUpper []float64
	ATRLower []float64

	Regimes []Regime
	ATRROC  []float64
}

// Compute runs one batch pass over the bar series. Indicators whose warm-up
// window exceeds the series length stay fully undefined rather than failing.
func Compute(candles []models.Candle, p Params) *Series {
	n := len(candles)
	s := &Series{
		params:     p,
		RSI:        nanSlice(n),
		MACD:       nanSlice(n),
		MACDSignal: nanSlice(n),
		MACDHist:   nanSlice(n),
		BBUpper:    nanSlice(n),
		BBMiddle:   nanSlice(n),
		BBLower:    nanSlice(n),
		ATR:        nanSlice(n),
		ATRPct:     nanSlice(n),
		HistVol:    nanSlice(n),
		ATRMA:      nanSlice(n),
		ATRStd:     nanSlice(n),
		ATRUpper:   nanSlice(n),
		ATRLower:   nanSlice(n),
		ATRROC:     nanSlice(n),
	}
	s.Regimes = make([]Regime, n)
	for i := range s.Regimes {
		s.Regimes[i] = RegimeUndefined
	}
	if n == 0 {
		return s
	}

	if values, err := NewRSI(p.RSIPeriod).Calculate(candles); err == nil {
		s.RSI = values
	}

	if values, err := NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal).Calculate(candles); err == nil {
		s.MACD = values["macd"]
		s.MACDSignal = values["signal"]
		s.MACDHist = values["histogram"]
	}

	if values, err := NewBollingerBands(p.BBPeriod, p.BBStd).Calculate(candles); err == nil {
		s.BBUpper = values["upper"]
		s.BBMiddle = values["middle"]
		s.BBLower = values["lower"]
	}

	if values, err := NewHistoricalVolatility(p.VolatilityLookback, p.TradingDays).Calculate(candles); err == nil {
		s.HistVol = values
	}

	atr, err := NewATR(p.ATRPeriod).Calculate(candles)
	if err != nil {
		return s
	}
	s.ATR = atr

	for i := 0; i < n; i++ {
		if Defined(atr[i]) && candles[i].Close != 0 {
			s.ATRPct[i] = atr[i] / candles[i].Close * 100
		}
	}

	s.ATRMA, s.ATRStd = rollingMeanStd(atr, p.StdDevPeriod)
	for i := 0; i < n; i++ {
		if Defined(s.ATRMA[i]) {
			s.ATRUpper[i] = s.ATRMA[i] + s.ATRStd[i]*p.BBStd
			s.ATRLower[i] = s.ATRMA[i] - s.ATRStd[i]*p.BBStd
		}
	}

	s.computeRegimes(atr)

	for i := p.ATRROCSpan; i < n; i++ {
		prev := atr[i-p.ATRROCSpan]
		if Defined(atr[i]) && Defined(prev) && prev != 0 {
			s.ATRROC[i] = (atr[i] - prev) / prev * 100
		}
	}

	return s
}

// computeRegimes buckets the trailing percentile rank of ATR:
// <= 25th percentile is low, >= 75th is high, in between is normal.
func (s *Series) computeRegimes(atr []float64) {
	lookback := s.params.RegimeLookback
	for i := lookback - 1; i < len(atr); i++ {
		window := atr[i-lookback+1 : i+1]
		defined := true
		for _, v := range window {
			if math.IsNaN(v) {
				defined = false
				break
			}
		}
		if !defined {
			continue
		}

		pct := percentileRank(window)
		switch {
		case pct <= 0.25:
			s.Regimes[i] = RegimeLow
		case pct >= 0.75:
			s.Regimes[i] = RegimeHigh
		default:
			s.Regimes[i] = RegimeNormal
		}
	}
}

// Len returns the number of bars the series is aligned to.
func (s *Series) Len() int {
	return len(s.ATR)
}

// RegimeAt returns the volatility regime at idx, or RegimeUndefined when out
// of range or before the lookback fills.
func (s *Series) RegimeAt(idx int) Regime {
	if idx < 0 || idx >= len(s.Regimes) {
		return RegimeUndefined
	}
	return s.Regimes[idx]
}

// MomentumSignals holds the indicator-derived booleans at one bar index.
type MomentumSignals struct {
	RSIOverbought    bool
	RSIOversold      bool
	MACDBullishCross bool
	MACDBearishCross bool
	BBUpperBreak     bool
	BBLowerBreak     bool
}

// Signals derives the momentum signal booleans at idx. Undefined indicator
// values yield false signals rather than errors.
func (s *Series) Signals(candles []models.Candle, idx int) MomentumSignals {
	var sig MomentumSignals
	if idx < 1 || idx >= len(candles) {
		return sig
	}

	if Defined(s.RSI[idx]) {
		sig.RSIOverbought = s.RSI[idx] > s.params.RSIOverbought
		sig.RSIOversold = s.RSI[idx] < s.params.RSIOversold
	}

	prevHist, currHist := s.MACDHist[idx-1], s.MACDHist[idx]
	if Defined(prevHist) && Defined(currHist) {
		sig.MACDBullishCross = prevHist < 0 && currHist > 0
		sig.MACDBearishCross = prevHist > 0 && currHist < 0
	}

	px := candles[idx].Close
	if Defined(s.BBUpper[idx]) {
		sig.BBUpperBreak = px > s.BBUpper[idx]
		sig.BBLowerBreak = px < s.BBLower[idx]
	}

	return sig
}
