package backtest

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"momentum-backtester/internal/config"
	"momentum-backtester/internal/models"
)

func barGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.Candle{}), map[string]gopter.Gen{
		"Open":   gen.Float64Range(50.0, 150.0),
		"High":   gen.Float64Range(50.0, 150.0),
		"Low":    gen.Float64Range(50.0, 150.0),
		"Close":  gen.Float64Range(50.0, 150.0),
		"Volume": gen.Int64Range(100, 100000),
	}).Map(func(c models.Candle) models.Candle {
		c.High = math.Max(c.High, math.Max(c.Open, c.Close))
		c.Low = math.Min(c.Low, math.Min(c.Open, c.Close))
		if c.High <= c.Low {
			c.High = c.Low + 0.5
		}
		return c
	})
}

func barSliceGen(minLen, maxLen int) gopter.Gen {
	return gen.SliceOfN(maxLen, barGen()).Map(func(candles []models.Candle) []models.Candle {
		for len(candles) < minLen {
			candles = append(candles, candles[len(candles)-1])
		}
		base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
		for i := range candles {
			candles[i].Timestamp = base.AddDate(0, 0, i)
		}
		return candles
	})
}

func TestProperty_EquityIdentity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("final equity equals initial capital plus the sum of trade P&L", prop.ForAll(
		func(candles []models.Candle) bool {
			engine := NewEngine(config.Default(), zerolog.Nop())
			result, err := engine.Run(candles)
			if err != nil {
				return false
			}

			var pnlSum float64
			for _, trade := range result.Trades {
				pnlSum += trade.PnL
			}
			return math.Abs(result.FinalEquity-(result.InitialCapital+pnlSum)) < 1e-6
		},
		barSliceGen(30, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_TradeIDsContiguous(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("closed trades carry ids 1..n in entry order and never overlap", prop.ForAll(
		func(candles []models.Candle) bool {
			engine := NewEngine(config.Default(), zerolog.Nop())
			result, err := engine.Run(candles)
			if err != nil {
				return false
			}

			for i, trade := range result.Trades {
				if trade.ID != i+1 {
					return false
				}
				if trade.ExitTime.Before(trade.EntryTime) {
					return false
				}
				if i > 0 && result.Trades[i-1].ExitTime.After(trade.EntryTime) {
					return false
				}
			}
			return true
		},
		barSliceGen(30, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_EquityCurveMatchesBars(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("one equity sample per bar, aligned to bar timestamps", prop.ForAll(
		func(candles []models.Candle) bool {
			engine := NewEngine(config.Default(), zerolog.Nop())
			result, err := engine.Run(candles)
			if err != nil {
				return false
			}

			if len(result.EquityCurve) != len(candles) {
				return false
			}
			for i, p := range result.EquityCurve {
				if !p.Timestamp.Equal(candles[i].Timestamp) {
					return false
				}
			}
			return true
		},
		barSliceGen(30, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_Deterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("identical input produces identical trades", prop.ForAll(
		func(candles []models.Candle) bool {
			first, err := NewEngine(config.Default(), zerolog.Nop()).Run(candles)
			if err != nil {
				return false
			}
			second, err := NewEngine(config.Default(), zerolog.Nop()).Run(candles)
			if err != nil {
				return false
			}

			if first.FinalEquity != second.FinalEquity || len(first.Trades) != len(second.Trades) {
				return false
			}
			for i := range first.Trades {
				if first.Trades[i] != second.Trades[i] {
					return false
				}
			}
			return true
		},
		barSliceGen(30, 150),
	))

	properties.TestingRun(t)
}
