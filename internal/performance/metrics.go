// Package performance computes aggregate statistics over completed
// backtest runs.
package performance

import (
	"encoding/json"
	"math"
	"time"

	"momentum-backtester/internal/backtest"
	"momentum-backtester/internal/models"
)

// Ratio is a float64 that marshals non-finite values as JSON null, since
// encoding/json rejects Inf and NaN outright.
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	v := float64(r)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Metrics is the full statistical view of one run.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`      // fraction of initial capital
	AnnualizedReturn float64 `json:"annualized_return"` // fraction per year

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`

	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	AverageTrade float64 `json:"average_trade"`
	BestTrade    float64 `json:"best_trade"`
	WorstTrade   float64 `json:"worst_trade"`

	// ProfitFactor is +Inf when there are winners but no losers.
	// Non-finite ratios marshal to JSON null.
	ProfitFactor Ratio `json:"profit_factor"`

	SharpeRatio float64 `json:"sharpe_ratio"`

	MaxDrawdown float64 `json:"max_drawdown"` // in currency
	// MAR is annualized return over max drawdown fraction, +Inf when the
	// curve never draws down.
	MAR Ratio `json:"mar"`

	LongTrades  int `json:"long_trades"`
	ShortTrades int `json:"short_trades"`

	AvgHoldDuration time.Duration `json:"avg_hold_duration"`

	ExitReasons map[models.ExitReason]int `json:"exit_reasons"`
}

// Calculate derives metrics from a completed run. A run with no trades
// yields zeroed trade statistics rather than an error.
func Calculate(result *backtest.Result) Metrics {
	m := Metrics{
		ExitReasons: make(map[models.ExitReason]int),
	}

	if result.InitialCapital != 0 {
		m.TotalReturn = (result.FinalEquity - result.InitialCapital) / result.InitialCapital
	}
	m.AnnualizedReturn = annualizedReturn(result)
	m.MaxDrawdown = backtest.MaxDrawdown(result.EquityCurve)
	m.SharpeRatio = sharpeRatio(result.EquityCurve)
	m.MAR = Ratio(marRatio(m.AnnualizedReturn, m.MaxDrawdown, result.InitialCapital))

	m.TotalTrades = len(result.Trades)
	if m.TotalTrades == 0 {
		return m
	}

	var winSum, lossSum, pnlSum float64
	var holdSum time.Duration
	m.BestTrade = result.Trades[0].PnL
	m.WorstTrade = result.Trades[0].PnL

	for _, t := range result.Trades {
		pnlSum += t.PnL
		holdSum += t.ExitTime.Sub(t.EntryTime)
		m.ExitReasons[t.ExitReason]++

		if t.Side == models.SideLong {
			m.LongTrades++
		} else {
			m.ShortTrades++
		}

		if t.PnL > 0 {
			m.WinningTrades++
			winSum += t.PnL
		} else {
			m.LosingTrades++
			lossSum += t.PnL
		}

		if t.PnL > m.BestTrade {
			m.BestTrade = t.PnL
		}
		if t.PnL < m.WorstTrade {
			m.WorstTrade = t.PnL
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	m.AverageTrade = pnlSum / float64(m.TotalTrades)
	m.AvgHoldDuration = holdSum / time.Duration(m.TotalTrades)

	if m.WinningTrades > 0 {
		m.AvgWin = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = lossSum / float64(m.LosingTrades)
	}

	switch {
	case lossSum != 0:
		m.ProfitFactor = Ratio(winSum / math.Abs(lossSum))
	case winSum > 0:
		m.ProfitFactor = Ratio(math.Inf(1))
	}

	return m
}

func annualizedReturn(result *backtest.Result) float64 {
	curve := result.EquityCurve
	if len(curve) < 2 || result.InitialCapital <= 0 || result.FinalEquity <= 0 {
		return 0
	}

	days := curve[len(curve)-1].Timestamp.Sub(curve[0].Timestamp).Hours() / 24
	if days <= 0 {
		return 0
	}
	years := days / 365

	return math.Pow(result.FinalEquity/result.InitialCapital, 1/years) - 1
}

// sharpeRatio annualizes the mean over standard deviation of bar-to-bar
// equity returns, assuming daily bars.
func sharpeRatio(curve []models.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Equity == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-curve[i-1].Equity)/curve[i-1].Equity)
	}
	if len(returns) == 0 {
		return 0
	}

	var meanReturn float64
	for _, r := range returns {
		meanReturn += r
	}
	meanReturn /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - meanReturn) * (r - meanReturn)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev == 0 {
		return 0
	}

	return meanReturn / stdDev * math.Sqrt(252)
}

func marRatio(annualizedReturn, maxDrawdown, initialCapital float64) float64 {
	if initialCapital <= 0 {
		return 0
	}
	ddFraction := maxDrawdown / initialCapital
	if ddFraction == 0 {
		if annualizedReturn > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return annualizedReturn / ddFraction
}
