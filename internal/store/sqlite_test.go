package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"momentum-backtester/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(symbol string, startedAt time.Time) (*RunRecord, []models.Trade, []models.EquityPoint) {
	run := &RunRecord{
		Symbol:         symbol,
		StartedAt:      startedAt,
		InitialCapital: 100000,
		FinalEquity:    101250,
		TotalReturn:    0.0125,
		TradeCount:     2,
		WinRate:        0.5,
		AverageTrade:   625,
		MaxDrawdown:    300,
	}
	trades := []models.Trade{
		{
			ID:         1,
			Side:       models.SideLong,
			EntryTime:  startedAt,
			EntryPrice: 100,
			ExitTime:   startedAt.AddDate(0, 0, 3),
			ExitPrice:  115.5,
			Size:       0.1,
			PnL:        1550,
			ExitReason: models.ExitTarget,
		},
		{
			ID:         2,
			Side:       models.SideShort,
			EntryTime:  startedAt.AddDate(0, 0, 5),
			EntryPrice: 116,
			ExitTime:   startedAt.AddDate(0, 0, 6),
			ExitPrice:  119,
			Size:       0.1,
			PnL:        -300,
			ExitReason: models.ExitStop,
		},
	}
	curve := []models.EquityPoint{
		{Timestamp: startedAt, Equity: 100000},
		{Timestamp: startedAt.AddDate(0, 0, 3), Equity: 101550},
		{Timestamp: startedAt.AddDate(0, 0, 6), Equity: 101250},
	}
	return run, trades, curve
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	startedAt := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

	run, trades, curve := sampleRun("SPY", startedAt)
	runID, err := store.SaveRun(ctx, run, trades, curve)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if runID <= 0 {
		t.Fatalf("runID = %d, want positive", runID)
	}
	if run.ID != runID {
		t.Errorf("run.ID = %d, want %d set by SaveRun", run.ID, runID)
	}

	got, err := store.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Symbol != "SPY" || got.FinalEquity != 101250 || got.TradeCount != 2 {
		t.Errorf("GetRun = %+v, want the saved record", got)
	}
}

func TestGetRunMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun(context.Background(), 9999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestTradesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	startedAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	run, trades, curve := sampleRun("SPY", startedAt)
	runID, err := store.SaveRun(ctx, run, trades, curve)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := store.GetTrades(ctx, runID)
	if err != nil {
		t.Fatalf("GetTrades: %v", err)
	}
	if len(got) != len(trades) {
		t.Fatalf("trades = %d, want %d", len(got), len(trades))
	}
	for i, trade := range got {
		want := trades[i]
		if trade.ID != want.ID || trade.Side != want.Side || trade.ExitReason != want.ExitReason {
			t.Errorf("trade[%d] = %+v, want %+v", i, trade, want)
		}
		if trade.PnL != want.PnL || trade.EntryPrice != want.EntryPrice || trade.ExitPrice != want.ExitPrice {
			t.Errorf("trade[%d] prices = %+v, want %+v", i, trade, want)
		}
		if !trade.EntryTime.Equal(want.EntryTime) || !trade.ExitTime.Equal(want.ExitTime) {
			t.Errorf("trade[%d] times = %v/%v, want %v/%v", i, trade.EntryTime, trade.ExitTime, want.EntryTime, want.ExitTime)
		}
	}
}

func TestEquityCurveRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	startedAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	run, trades, curve := sampleRun("SPY", startedAt)
	runID, err := store.SaveRun(ctx, run, trades, curve)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := store.GetEquityCurve(ctx, runID)
	if err != nil {
		t.Fatalf("GetEquityCurve: %v", err)
	}
	if len(got) != len(curve) {
		t.Fatalf("curve = %d points, want %d", len(got), len(curve))
	}
	for i, p := range got {
		if !p.Timestamp.Equal(curve[i].Timestamp) || p.Equity != curve[i].Equity {
			t.Errorf("point[%d] = %+v, want %+v", i, p, curve[i])
		}
	}
}

func TestGetRunsFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, symbol := range []string{"SPY", "QQQ", "SPY"} {
		run, trades, curve := sampleRun(symbol, base.AddDate(0, 0, i))
		if _, err := store.SaveRun(ctx, run, trades, curve); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	t.Run("by symbol", func(t *testing.T) {
		runs, err := store.GetRuns(ctx, RunFilter{Symbol: "SPY"})
		if err != nil {
			t.Fatalf("GetRuns: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("runs = %d, want 2 for SPY", len(runs))
		}
	})

	t.Run("newest first with limit", func(t *testing.T) {
		runs, err := store.GetRuns(ctx, RunFilter{Limit: 1})
		if err != nil {
			t.Fatalf("GetRuns: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("runs = %d, want 1", len(runs))
		}
		if runs[0].Symbol != "SPY" || !runs[0].StartedAt.Equal(base.AddDate(0, 0, 2)) {
			t.Errorf("latest run = %+v, want the most recent save", runs[0])
		}
	})

	t.Run("since bound", func(t *testing.T) {
		runs, err := store.GetRuns(ctx, RunFilter{Since: base.AddDate(0, 0, 1)})
		if err != nil {
			t.Fatalf("GetRuns: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("runs = %d, want 2 on or after the bound", len(runs))
		}
	})
}

func TestSaveRunEmptyTrades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &RunRecord{
		Symbol:         "SPY",
		StartedAt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: 100000,
		FinalEquity:    100000,
	}
	runID, err := store.SaveRun(ctx, run, nil, nil)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	trades, err := store.GetTrades(ctx, runID)
	if err != nil {
		t.Fatalf("GetTrades: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("trades = %d, want 0", len(trades))
	}
}
