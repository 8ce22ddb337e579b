package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"momentum-backtester/internal/store"
)

func newHistoryCmd(app *App) *cobra.Command {
	var (
		symbol string
		limit  int
		days   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved backtest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("run store unavailable")
			}

			filter := store.RunFilter{
				Symbol: symbol,
				Limit:  limit,
			}
			if days > 0 {
				filter.Since = time.Now().AddDate(0, 0, -days)
			}

			runs, err := app.Store.GetRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(runs)
			}

			if len(runs) == 0 {
				output.Dim("No saved runs.")
				return nil
			}

			table := NewTable(output, "ID", "Symbol", "Date", "Return", "Trades", "Win Rate", "Max DD")
			for _, r := range runs {
				table.AddRow(
					fmt.Sprintf("%d", r.ID),
					r.Symbol,
					r.StartedAt.Format("2006-01-02 15:04"),
					output.Percent(r.TotalReturn),
					fmt.Sprintf("%d", r.TradeCount),
					fmt.Sprintf("%.1f%%", r.WinRate*100),
					fmt.Sprintf("%.2f", r.MaxDrawdown),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "filter by symbol")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show")
	cmd.Flags().IntVar(&days, "days", 0, "only show runs from the last N days")

	return cmd
}
