package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"momentum-backtester/internal/backtest"
	"momentum-backtester/internal/performance"
)

func newReportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "report <run-id>",
		Short: "Show the full report for a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("run store unavailable")
			}

			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad run id %q", args[0])
			}

			record, err := app.Store.GetRun(cmd.Context(), runID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("run %d not found", runID)
				}
				return err
			}

			trades, err := app.Store.GetTrades(cmd.Context(), runID)
			if err != nil {
				return err
			}
			curve, err := app.Store.GetEquityCurve(cmd.Context(), runID)
			if err != nil {
				return err
			}

			result := &backtest.Result{
				InitialCapital: record.InitialCapital,
				FinalEquity:    record.FinalEquity,
				Trades:         trades,
				EquityCurve:    curve,
			}

			res := runResult{
				Symbol:  record.Symbol,
				RunID:   runID,
				Summary: result.Summarize(),
				Metrics: performance.Calculate(result),
				Trades:  trades,
			}

			if output.IsJSON() {
				return output.JSON(res)
			}
			printRunReport(output, res)
			return nil
		},
	}
}
