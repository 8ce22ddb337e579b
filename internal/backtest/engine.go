// Package backtest runs the bar-by-bar simulation of the momentum strategy
// over historical OHLCV data.
package backtest

import (
	"github.com/rs/zerolog"

	"momentum-backtester/internal/analysis/indicators"
	"momentum-backtester/internal/config"
	"momentum-backtester/internal/errors"
	"momentum-backtester/internal/logging"
	"momentum-backtester/internal/models"
	"momentum-backtester/internal/strategy"
)

// Minimum bar history before entries are considered.
const warmupBars = 20

// Engine simulates the strategy over a bar series. It holds at most one
// open position at a time and tracks realized equity only.
type Engine struct {
	entryRules *strategy.EntryRules
	exitRules  *strategy.ExitRules
	direction  models.TradeDirection

	initialCapital  float64
	indicatorParams indicators.Params

	logger zerolog.Logger

	equity      float64
	position    *models.Position
	trades      []models.Trade
	equityCurve []models.EquityPoint
	tradeCount  int
}

// Result holds the outcome of a completed run.
type Result struct {
	InitialCapital float64
	FinalEquity    float64
	Trades         []models.Trade
	EquityCurve    []models.EquityPoint
}

// Summary is the aggregate view of a result.
type Summary struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalEquity    float64 `json:"final_equity"`
	TotalReturn    float64 `json:"total_return"` // fraction of initial capital
	TradeCount     int     `json:"trade_count"`
	WinRate        float64 `json:"win_rate"`
	AverageTrade   float64 `json:"average_trade"`
	MaxDrawdown    float64 `json:"max_drawdown"` // in currency
}

// NewEngine creates an engine from the application configuration.
func NewEngine(cfg *config.Config, logger zerolog.Logger) *Engine {
	e := &Engine{
		entryRules:     strategy.NewEntryRules(cfg),
		exitRules:      strategy.NewExitRules(cfg),
		direction:      cfg.Direction(),
		initialCapital: cfg.Risk.InitialCapital,
		indicatorParams: indicators.Params{
			RSIPeriod:          cfg.Indicators.RSIPeriod,
			RSIOverbought:      cfg.Indicators.RSIOverbought,
			RSIOversold:        cfg.Indicators.RSIOversold,
			MACDFast:           cfg.Indicators.MACDFast,
			MACDSlow:           cfg.Indicators.MACDSlow,
			MACDSignal:         cfg.Indicators.MACDSignal,
			BBPeriod:           cfg.Indicators.BBPeriod,
			BBStd:              cfg.Indicators.BBStd,
			ATRPeriod:          cfg.Indicators.ATRPeriod,
			VolatilityLookback: cfg.Indicators.VolatilityLookback,
			StdDevPeriod:       cfg.Indicators.StdDevPeriod,
			RegimeLookback:     cfg.Indicators.RegimeLookback,
			ATRROCSpan:         cfg.Indicators.ATRROCSpan,
			TradingDays:        252,
		},
		logger: logger,
	}
	e.Reset()
	return e
}

// Reset clears all run state. Run calls it automatically, so a single
// engine can process multiple symbols in sequence.
func (e *Engine) Reset() {
	e.equity = e.initialCapital
	e.position = nil
	e.trades = nil
	e.equityCurve = nil
	e.tradeCount = 0
}

// Run simulates the strategy over the bar series and returns the result.
// Equity is sampled once per bar after that bar is fully processed.
func (e *Engine) Run(candles []models.Candle) (*Result, error) {
	if len(candles) == 0 {
		return nil, errors.ErrNoBars
	}

	e.Reset()
	series := indicators.Compute(candles, e.indicatorParams)

	for idx := range candles {
		e.processBar(candles, series, idx)
		e.equityCurve = append(e.equityCurve, models.EquityPoint{
			Timestamp: candles[idx].Timestamp,
			Equity:    e.equity,
		})
	}

	return &Result{
		InitialCapital: e.initialCapital,
		FinalEquity:    e.equity,
		Trades:         e.trades,
		EquityCurve:    e.equityCurve,
	}, nil
}

// processBar advances the simulation one bar. A bar that opens a position
// gets no exit check; exits begin on the following bar.
func (e *Engine) processBar(candles []models.Candle, series *indicators.Series, idx int) {
	if e.position != nil {
		e.checkPositionExit(candles, series, idx)
	} else if idx >= warmupBars {
		e.checkNewEntry(candles, series, idx)
	}
}

func (e *Engine) checkPositionExit(candles []models.Candle, series *indicators.Series, idx int) {
	pos := e.position
	bar := candles[idx]

	pos.TrailingStop = e.exitRules.TrailingStop(
		candles, series, idx, pos.Side, pos.EntryPrice, pos.TrailingStop,
	)

	hitStop := (pos.Side == models.SideLong && bar.Low <= pos.TrailingStop) ||
		(pos.Side == models.SideShort && bar.High >= pos.TrailingStop)

	hitTarget := (pos.Side == models.SideLong && bar.High >= pos.TakeProfit) ||
		(pos.Side == models.SideShort && bar.Low <= pos.TakeProfit)

	shouldExit, _ := e.exitRules.CheckExit(candles, series, idx, pos.Side)

	if !hitStop && !hitTarget && !shouldExit {
		return
	}

	// Priority: stop, then target, then signal.
	var exitPrice float64
	var reason models.ExitReason
	switch {
	case hitStop:
		exitPrice = pos.TrailingStop
		reason = models.ExitStop
	case hitTarget:
		exitPrice = pos.TakeProfit
		reason = models.ExitTarget
	default:
		exitPrice = bar.Close
		reason = models.ExitSignal
	}

	e.closePosition(exitPrice, bar, reason)
}

func (e *Engine) checkNewEntry(candles []models.Candle, series *indicators.Series, idx int) {
	decision, _ := e.entryRules.CheckEntry(candles, series, idx)
	if decision == strategy.DecisionNone {
		return
	}

	side := models.SideLong
	if decision == strategy.DecisionShort {
		side = models.SideShort
	}
	if !e.directionAllowed(side) {
		return
	}

	bar := candles[idx]
	entryPrice := bar.Close
	size := e.entryRules.PositionSize(candles, series, idx)
	stopDistance, targetDistance := e.exitRules.DynamicStops(series, idx)

	var stopLoss, takeProfit float64
	if side == models.SideLong {
		stopLoss = entryPrice - stopDistance
		takeProfit = entryPrice + targetDistance
	} else {
		stopLoss = entryPrice + stopDistance
		takeProfit = entryPrice - targetDistance
	}

	e.tradeCount++
	e.position = &models.Position{
		ID:           e.tradeCount,
		Side:         side,
		EntryPrice:   entryPrice,
		EntryTime:    bar.Timestamp,
		Size:         size,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
		TrailingStop: stopLoss,
	}

	logging.LogTradeOpen(e.logger, e.position.ID, string(side), entryPrice, size)
}

func (e *Engine) directionAllowed(side models.Side) bool {
	switch e.direction {
	case models.DirectionLong:
		return side == models.SideLong
	case models.DirectionShort:
		return side == models.SideShort
	default:
		return true
	}
}

func (e *Engine) closePosition(exitPrice float64, bar models.Candle, reason models.ExitReason) {
	pos := e.position

	var pnl float64
	if pos.Side == models.SideLong {
		pnl = (exitPrice - pos.EntryPrice) * pos.Size
	} else {
		pnl = (pos.EntryPrice - exitPrice) * pos.Size
	}

	e.equity += pnl
	e.trades = append(e.trades, models.Trade{
		ID:         pos.ID,
		Side:       pos.Side,
		EntryTime:  pos.EntryTime,
		EntryPrice: pos.EntryPrice,
		ExitTime:   bar.Timestamp,
		ExitPrice:  exitPrice,
		Size:       pos.Size,
		PnL:        pnl,
		ExitReason: reason,
	})
	e.position = nil

	logging.LogTradeClose(e.logger, pos.ID, string(reason), exitPrice, pnl)
}

// Summarize aggregates a result. A run with no trades reports zero win rate
// and zero average trade rather than failing.
func (r *Result) Summarize() Summary {
	s := Summary{
		InitialCapital: r.InitialCapital,
		FinalEquity:    r.FinalEquity,
		TradeCount:     len(r.Trades),
	}

	if r.InitialCapital != 0 {
		s.TotalReturn = (r.FinalEquity - r.InitialCapital) / r.InitialCapital
	}

	if len(r.Trades) > 0 {
		wins := 0
		var pnlSum float64
		for _, t := range r.Trades {
			if t.PnL > 0 {
				wins++
			}
			pnlSum += t.PnL
		}
		s.WinRate = float64(wins) / float64(len(r.Trades))
		s.AverageTrade = pnlSum / float64(len(r.Trades))
	}

	s.MaxDrawdown = MaxDrawdown(r.EquityCurve)

	return s
}

// MaxDrawdown returns the largest peak-to-trough equity decline in currency.
func MaxDrawdown(curve []models.EquityPoint) float64 {
	var peak, maxDD float64
	for i, p := range curve {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		if dd := peak - p.Equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
