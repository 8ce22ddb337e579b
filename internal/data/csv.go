// Package data loads historical OHLCV data from CSV files.
package data

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"momentum-backtester/internal/errors"
	"momentum-backtester/internal/models"
)

// Date layouts accepted in CSV files, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// csvRow is the on-disk row format.
type csvRow struct {
	Date   string  `csv:"Date"`
	Open   float64 `csv:"Open"`
	High   float64 `csv:"High"`
	Low    float64 `csv:"Low"`
	Close  float64 `csv:"Close"`
	Volume int64   `csv:"Volume"`
}

// Loader loads candle data from a directory of per-symbol CSV files.
type Loader struct {
	dataDir string
}

// NewLoader creates a loader rooted at the given directory.
func NewLoader(dataDir string) *Loader {
	return &Loader{dataDir: dataDir}
}

// Path returns the CSV path for a symbol.
func (l *Loader) Path(symbol string) string {
	return filepath.Join(l.dataDir, strings.ToUpper(symbol)+".csv")
}

// Load reads and validates the candle series for a symbol. Bars must be in
// strictly ascending timestamp order.
func (l *Loader) Load(symbol string) ([]models.Candle, error) {
	path := l.Path(symbol)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.DataError{
				DataType: "candles",
				Symbol:   symbol,
				Message:  fmt.Sprintf("no data file at %s", path),
				Err:      errors.ErrDataNotFound,
			}
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var rows []csvRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, &errors.DataError{
			DataType: "candles",
			Symbol:   symbol,
			Message:  "parsing CSV",
			Err:      err,
		}
	}
	if len(rows) == 0 {
		return nil, errors.ErrNoBars
	}

	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		ts, err := parseDate(row.Date)
		if err != nil {
			return nil, &errors.DataError{
				DataType: "candles",
				Symbol:   symbol,
				Message:  fmt.Sprintf("row %d: bad date %q", i+1, row.Date),
				Err:      err,
			}
		}

		c := models.Candle{
			Timestamp: ts,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		}
		if err := validateCandle(c); err != nil {
			return nil, &errors.DataError{
				DataType: "candles",
				Symbol:   symbol,
				Message:  fmt.Sprintf("row %d", i+1),
				Err:      err,
			}
		}
		if i > 0 && !ts.After(candles[i-1].Timestamp) {
			return nil, &errors.DataError{
				DataType: "candles",
				Symbol:   symbol,
				Message:  fmt.Sprintf("row %d: timestamps not strictly ascending", i+1),
			}
		}

		candles = append(candles, c)
	}

	return candles, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

func validateCandle(c models.Candle) error {
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("non-positive price")
	}
	if c.High < c.Low {
		return fmt.Errorf("high %.4f below low %.4f", c.High, c.Low)
	}
	if c.Volume < 0 {
		return fmt.Errorf("negative volume")
	}
	return nil
}

// Filter returns the candles within [start, end]. Zero bounds are open.
func Filter(candles []models.Candle, start, end time.Time) []models.Candle {
	var out []models.Candle
	for _, c := range candles {
		if !start.IsZero() && c.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && c.Timestamp.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}
