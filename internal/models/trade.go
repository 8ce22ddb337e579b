package models

import "time"

// Position represents the single currently open trade. It is owned
// exclusively by the backtest engine and mutated only by it.
type Position struct {
	ID           int
	Side         Side
	EntryPrice   float64
	EntryTime    time.Time
	Size         float64
	StopLoss     float64
	TakeProfit   float64 // fixed at entry, never revised
	TrailingStop float64 // revised every bar while open
}

// Trade is the immutable record created when a position closes.
type Trade struct {
	ID         int        `json:"id"`
	Side       Side       `json:"side"`
	EntryTime  time.Time  `json:"entry_time"`
	EntryPrice float64    `json:"entry_price"`
	ExitTime   time.Time  `json:"exit_time"`
	ExitPrice  float64    `json:"exit_price"`
	Size       float64    `json:"size"`
	PnL        float64    `json:"pnl"`
	ExitReason ExitReason `json:"exit_reason"`
}

// EquityPoint is one sample of the equity curve. Equity reflects
// realized P&L only; it never marks an open position to market.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}
