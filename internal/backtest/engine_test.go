package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"momentum-backtester/internal/analysis/indicators"
	"momentum-backtester/internal/config"
	"momentum-backtester/internal/errors"
	"momentum-backtester/internal/models"
)

func flatBars(n int, price float64) []models.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price,
			Volume:    1000,
		}
	}
	return candles
}

func newTestEngine() *Engine {
	return NewEngine(config.Default(), zerolog.Nop())
}

func TestRunNoBars(t *testing.T) {
	engine := newTestEngine()
	if _, err := engine.Run(nil); !errors.Is(err, errors.ErrNoBars) {
		t.Errorf("err = %v, want ErrNoBars", err)
	}
}

func TestRunShortSeriesNoTrades(t *testing.T) {
	engine := newTestEngine()
	candles := flatBars(10, 100)

	result, err := engine.Run(candles)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Trades) != 0 {
		t.Errorf("trades = %d, want 0 with fewer than 20 bars", len(result.Trades))
	}
	if len(result.EquityCurve) != len(candles) {
		t.Errorf("equity curve length = %d, want %d", len(result.EquityCurve), len(candles))
	}
	for i, p := range result.EquityCurve {
		if p.Equity != result.InitialCapital {
			t.Errorf("equity[%d] = %v, want initial capital with no trades", i, p.Equity)
		}
	}
}

// exitFixture puts an open long position on the engine and returns the
// series for the fixture bars.
func exitFixture(e *Engine, candles []models.Candle) *indicators.Series {
	e.Reset()
	e.tradeCount = 1
	e.position = &models.Position{
		ID:           1,
		Side:         models.SideLong,
		EntryPrice:   95.5,
		EntryTime:    candles[0].Timestamp,
		Size:         1.0,
		StopLoss:     95,
		TakeProfit:   110,
		TrailingStop: 95,
	}
	return indicators.Compute(candles, e.indicatorParams)
}

func TestExitPriorityStopOverTarget(t *testing.T) {
	engine := newTestEngine()
	candles := flatBars(6, 96.5)
	// Exit bar pierces both the trailing stop and the target
	candles[5] = models.Candle{
		Timestamp: candles[5].Timestamp,
		Open:      96.5,
		High:      112,
		Low:       94,
		Close:     96.5,
		Volume:    1000,
	}
	series := exitFixture(engine, candles)

	engine.checkPositionExit(candles, series, 5)

	if engine.position != nil {
		t.Fatal("position should be closed")
	}
	if len(engine.trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(engine.trades))
	}
	trade := engine.trades[0]
	if trade.ExitReason != models.ExitStop {
		t.Errorf("exit reason = %s, want Stop when both stop and target are hit", trade.ExitReason)
	}
	if trade.ExitPrice >= 110 {
		t.Errorf("exit price = %v, want trailing stop level rather than target", trade.ExitPrice)
	}
}

func TestExitPriorityTargetOverSignal(t *testing.T) {
	engine := newTestEngine()
	candles := flatBars(6, 99)
	candles[5] = models.Candle{
		Timestamp: candles[5].Timestamp,
		Open:      99,
		High:      112,
		Low:       99,
		Close:     99,
		Volume:    1000,
	}
	series := exitFixture(engine, candles)

	engine.checkPositionExit(candles, series, 5)

	if len(engine.trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(engine.trades))
	}
	trade := engine.trades[0]
	if trade.ExitReason != models.ExitTarget {
		t.Errorf("exit reason = %s, want Target", trade.ExitReason)
	}
	if trade.ExitPrice != 110 {
		t.Errorf("exit price = %v, want the take-profit level 110", trade.ExitPrice)
	}
	if math.Abs(trade.PnL-(110-95.5)) > 1e-9 {
		t.Errorf("pnl = %v, want %v", trade.PnL, 110-95.5)
	}
}

func TestSignalExitBearishEngulfing(t *testing.T) {
	engine := newTestEngine()
	candles := flatBars(6, 99)
	// Prior bar green, exit bar engulfs it without touching stop or target
	candles[4] = models.Candle{
		Timestamp: candles[4].Timestamp,
		Open:      99,
		High:      99.6,
		Low:       98.9,
		Close:     99.5,
		Volume:    1000,
	}
	candles[5] = models.Candle{
		Timestamp: candles[5].Timestamp,
		Open:      99.8,
		High:      99.9,
		Low:       98.5,
		Close:     98.5,
		Volume:    1000,
	}
	series := exitFixture(engine, candles)

	engine.checkPositionExit(candles, series, 5)

	if len(engine.trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(engine.trades))
	}
	trade := engine.trades[0]
	if trade.ExitReason != models.ExitSignal {
		t.Errorf("exit reason = %s, want Signal", trade.ExitReason)
	}
	if trade.ExitPrice != 98.5 {
		t.Errorf("exit price = %v, want the bar close 98.5", trade.ExitPrice)
	}
}

func TestResetClearsState(t *testing.T) {
	engine := newTestEngine()
	candles := flatBars(6, 99)
	series := exitFixture(engine, candles)
	engine.checkPositionExit(candles, series, 5)

	engine.Reset()

	if engine.position != nil || len(engine.trades) != 0 || engine.tradeCount != 0 {
		t.Error("Reset must clear position, trades, and the id counter")
	}
	if engine.equity != engine.initialCapital {
		t.Errorf("equity = %v, want initial capital after Reset", engine.equity)
	}
}

func TestDirectionFilter(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy.TradeDirection = string(models.DirectionShort)
	engine := NewEngine(cfg, zerolog.Nop())

	if engine.directionAllowed(models.SideLong) {
		t.Error("long entries must be filtered in short-only mode")
	}
	if !engine.directionAllowed(models.SideShort) {
		t.Error("short entries must pass in short-only mode")
	}
}

func TestSummarizeNoTrades(t *testing.T) {
	result := &Result{
		InitialCapital: 100000,
		FinalEquity:    100000,
		EquityCurve: []models.EquityPoint{
			{Equity: 100000},
			{Equity: 100000},
		},
	}

	s := result.Summarize()
	if s.WinRate != 0 {
		t.Errorf("win rate = %v, want 0 with no trades", s.WinRate)
	}
	if s.AverageTrade != 0 {
		t.Errorf("average trade = %v, want 0 with no trades", s.AverageTrade)
	}
	if s.TotalReturn != 0 {
		t.Errorf("total return = %v, want 0", s.TotalReturn)
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"monotone rise", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 120, 90, 130}, 30},
		{"trough after late peak", []float64{100, 150, 140, 160, 110}, 50},
		{"empty curve", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			curve := make([]models.EquityPoint, len(tt.equity))
			for i, v := range tt.equity {
				curve[i] = models.EquityPoint{Equity: v}
			}
			if got := MaxDrawdown(curve); got != tt.want {
				t.Errorf("MaxDrawdown = %v, want %v", got, tt.want)
			}
		})
	}
}
