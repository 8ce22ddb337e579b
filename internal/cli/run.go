package cli

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"momentum-backtester/internal/backtest"
	"momentum-backtester/internal/data"
	"momentum-backtester/internal/logging"
	"momentum-backtester/internal/models"
	"momentum-backtester/internal/performance"
	"momentum-backtester/internal/store"
)

// runResult is the JSON payload for one symbol's run.
type runResult struct {
	Symbol  string              `json:"symbol"`
	RunID   int64               `json:"run_id,omitempty"`
	Summary backtest.Summary    `json:"summary"`
	Metrics performance.Metrics `json:"metrics"`
	Trades  []models.Trade      `json:"trades"`
}

func newRunCmd(app *App) *cobra.Command {
	var (
		symbols   []string
		dataDir   string
		startDate string
		endDate   string
		noSave    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the backtest over historical data",
		Long: `Run simulates the momentum strategy over per-symbol CSV files and prints
a summary and performance report for each symbol. Completed runs are saved
to the local run database unless --no-save is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if len(symbols) == 0 {
				symbols = app.Config.Backtest.Symbols
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no symbols: pass --symbol or set backtest.symbols in config")
			}
			if dataDir == "" {
				dataDir = app.Config.Backtest.DataDir
			}
			if startDate == "" {
				startDate = app.Config.Backtest.StartDate
			}
			if endDate == "" {
				endDate = app.Config.Backtest.EndDate
			}

			start, err := parseDateFlag(startDate)
			if err != nil {
				return fmt.Errorf("bad --start: %w", err)
			}
			end, err := parseDateFlag(endDate)
			if err != nil {
				return fmt.Errorf("bad --end: %w", err)
			}

			loader := data.NewLoader(dataDir)
			var results []runResult

			for _, symbol := range symbols {
				logger := logging.WithSymbol(app.Logger, symbol)

				candles, err := loader.Load(symbol)
				if err != nil {
					return err
				}
				candles = data.Filter(candles, start, end)

				logger.Info().Int("bars", len(candles)).Msg("Starting backtest")
				startedAt := time.Now()

				engine := backtest.NewEngine(app.Config, logger)
				result, err := engine.Run(candles)
				if err != nil {
					return fmt.Errorf("running backtest for %s: %w", symbol, err)
				}

				summary := result.Summarize()
				metrics := performance.Calculate(result)

				logger.Info().
					Int("trades", summary.TradeCount).
					Float64("final_equity", summary.FinalEquity).
					Msg("Backtest complete")

				res := runResult{
					Symbol:  symbol,
					Summary: summary,
					Metrics: metrics,
					Trades:  result.Trades,
				}

				if app.Store != nil && !noSave {
					record := &store.RunRecord{
						Symbol:         symbol,
						StartedAt:      startedAt,
						InitialCapital: summary.InitialCapital,
						FinalEquity:    summary.FinalEquity,
						TotalReturn:    summary.TotalReturn,
						TradeCount:     summary.TradeCount,
						WinRate:        summary.WinRate,
						AverageTrade:   summary.AverageTrade,
						MaxDrawdown:    summary.MaxDrawdown,
					}
					runID, err := app.Store.SaveRun(cmd.Context(), record, result.Trades, result.EquityCurve)
					if err != nil {
						logger.Warn().Err(err).Msg("Failed to save run")
					} else {
						res.RunID = runID
					}
				}

				results = append(results, res)
			}

			if output.IsJSON() {
				return output.JSON(results)
			}
			for _, res := range results {
				printRunReport(output, res)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&symbols, "symbol", "s", nil, "symbol to backtest (repeatable)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory of per-symbol CSV files")
	cmd.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run in the local database")

	return cmd
}

func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func printRunReport(output *Output, res runResult) {
	output.Println()
	output.Bold("=== %s ===", res.Symbol)
	printSummary(output, res.Summary)
	printMetrics(output, res.Metrics)

	if len(res.Trades) > 0 {
		output.Println()
		output.Bold("Trades")
		table := NewTable(output, "#", "Side", "Entry", "Exit", "Size", "P&L", "Reason")
		for _, t := range res.Trades {
			table.AddRow(
				fmt.Sprintf("%d", t.ID),
				string(t.Side),
				fmt.Sprintf("%s @ %.2f", t.EntryTime.Format("2006-01-02"), t.EntryPrice),
				fmt.Sprintf("%s @ %.2f", t.ExitTime.Format("2006-01-02"), t.ExitPrice),
				fmt.Sprintf("%.3f", t.Size),
				output.PnL(t.PnL),
				string(t.ExitReason),
			)
		}
		table.Render()
	}
}

func printSummary(output *Output, s backtest.Summary) {
	output.Printf("  Initial Capital: %.2f\n", s.InitialCapital)
	output.Printf("  Final Equity:    %.2f\n", s.FinalEquity)
	output.Printf("  Total Return:    %s\n", output.Percent(s.TotalReturn))
	output.Printf("  Trades:          %d\n", s.TradeCount)
	output.Printf("  Win Rate:        %.1f%%\n", s.WinRate*100)
	output.Printf("  Average Trade:   %s\n", output.PnL(s.AverageTrade))
	output.Printf("  Max Drawdown:    %.2f\n", s.MaxDrawdown)
}

func printMetrics(output *Output, m performance.Metrics) {
	output.Println()
	output.Bold("Performance")
	output.Printf("  Annualized Return: %s\n", output.Percent(m.AnnualizedReturn))
	output.Printf("  Sharpe Ratio:      %.2f\n", m.SharpeRatio)
	output.Printf("  Profit Factor:     %s\n", formatRatio(float64(m.ProfitFactor)))
	output.Printf("  MAR Ratio:         %s\n", formatRatio(float64(m.MAR)))
	output.Printf("  Long / Short:      %d / %d\n", m.LongTrades, m.ShortTrades)
	if m.TotalTrades > 0 {
		output.Printf("  Avg Win / Loss:    %s / %s\n", output.PnL(m.AvgWin), output.PnL(m.AvgLoss))
		output.Printf("  Best / Worst:      %s / %s\n", output.PnL(m.BestTrade), output.PnL(m.WorstTrade))
		output.Printf("  Avg Hold:          %s\n", m.AvgHoldDuration.Round(time.Hour))
		output.Printf("  Exits:             Stop %d, Target %d, Signal %d\n",
			m.ExitReasons[models.ExitStop],
			m.ExitReasons[models.ExitTarget],
			m.ExitReasons[models.ExitSignal],
		)
	}
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
