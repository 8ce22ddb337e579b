package indicators

import (
	"math"
	"testing"
	"time"

	"momentum-backtester/internal/models"
)

func flatCandles(n int, price float64) []models.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1000,
		}
	}
	return candles
}

func risingCandles(n int, start, step float64) []models.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	for i := range candles {
		px := start + float64(i)*step
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      px,
			High:      px + step,
			Low:       px - step,
			Close:     px + step/2,
			Volume:    1000,
		}
	}
	return candles
}

func TestRSIAllGains(t *testing.T) {
	candles := risingCandles(30, 100, 1)

	values, err := NewRSI(14).Calculate(candles)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	for i := 0; i < 14; i++ {
		if !math.IsNaN(values[i]) {
			t.Errorf("values[%d] = %v, want NaN before warm-up", i, values[i])
		}
	}
	for i := 14; i < len(values); i++ {
		if values[i] != 100 {
			t.Errorf("values[%d] = %v, want 100 for monotone gains", i, values[i])
		}
	}
}

func TestRSIInsufficientData(t *testing.T) {
	if _, err := NewRSI(14).Calculate(flatCandles(10, 100)); err != ErrInsufficientData {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
	if _, err := NewRSI(0).Calculate(flatCandles(30, 100)); err != ErrInvalidPeriod {
		t.Errorf("err = %v, want ErrInvalidPeriod", err)
	}
}

func TestEMAConstantSeries(t *testing.T) {
	values := CalculateEMA([]float64{5, 5, 5, 5, 5, 5, 5, 5}, 3)

	for i := 0; i < 2; i++ {
		if !math.IsNaN(values[i]) {
			t.Errorf("values[%d] = %v, want NaN", i, values[i])
		}
	}
	for i := 2; i < len(values); i++ {
		if values[i] != 5 {
			t.Errorf("values[%d] = %v, want 5", i, values[i])
		}
	}
}

func TestMACDWarmup(t *testing.T) {
	candles := risingCandles(60, 100, 0.5)

	values, err := NewMACD(12, 26, 9).Calculate(candles)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	// MACD line defined from slow-1, histogram from slow+signal-2
	if math.IsNaN(values["macd"][25]) {
		t.Error("macd[25] undefined, want first defined value")
	}
	if !math.IsNaN(values["macd"][24]) {
		t.Error("macd[24] defined, want NaN")
	}
	if math.IsNaN(values["histogram"][33]) {
		t.Error("histogram[33] undefined, want first defined value")
	}
	if !math.IsNaN(values["histogram"][32]) {
		t.Error("histogram[32] defined, want NaN")
	}
}

func TestHistoricalVolatilityFlatSeries(t *testing.T) {
	candles := flatCandles(40, 100)

	values, err := NewHistoricalVolatility(20, 252).Calculate(candles)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	for i := 0; i < 20; i++ {
		if !math.IsNaN(values[i]) {
			t.Errorf("values[%d] = %v, want NaN before warm-up", i, values[i])
		}
	}
	for i := 20; i < len(values); i++ {
		if values[i] != 0 {
			t.Errorf("values[%d] = %v, want 0 for flat prices", i, values[i])
		}
	}
}

func TestATRFlatRange(t *testing.T) {
	candles := flatCandles(30, 100)

	values, err := NewATR(14).Calculate(candles)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	// Every bar has the same high-low range of 2
	for i := 13; i < len(values); i++ {
		if math.Abs(values[i]-2) > 1e-9 {
			t.Errorf("values[%d] = %v, want 2", i, values[i])
		}
	}
}

func TestPercentileRank(t *testing.T) {
	tests := []struct {
		name   string
		window []float64
		want   float64
	}{
		{"last is maximum", []float64{1, 2, 3, 4}, 1.0},
		{"last is minimum", []float64{4, 3, 2, 1}, 0.25},
		{"ties use average rank", []float64{1, 2, 2}, (1 + (2+1.0)/2) / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentileRank(tt.window); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("percentileRank(%v) = %v, want %v", tt.window, got, tt.want)
			}
		})
	}
}

func TestComputeShortSeriesStaysUndefined(t *testing.T) {
	s := Compute(flatCandles(5, 100), DefaultParams())

	if s.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", s.Len())
	}
	for i := 0; i < 5; i++ {
		if !math.IsNaN(s.RSI[i]) || !math.IsNaN(s.ATR[i]) {
			t.Errorf("index %d: want all indicators undefined on short series", i)
		}
		if s.RegimeAt(i) != RegimeUndefined {
			t.Errorf("RegimeAt(%d) = %v, want RegimeUndefined", i, s.RegimeAt(i))
		}
	}
}
