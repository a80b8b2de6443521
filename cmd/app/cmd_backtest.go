package main

import (
	"context"

	"github.com/spf13/cobra"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/server"
)

var (
	backtestVerbose bool
	backtestCapital float64
	backtestTrades  bool
	backtestStops   []float64
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [start] [end]",
	Short: "Replay the strategy over stored history",
	Long: `Replay the daily decision loop over stored indicators and stages and
report summary statistics against buy-and-hold of the benchmark.

The start defaults to the first date the slowest moving average is defined
and the end to the last stored date.

Examples:
  revest backtest
  revest backtest 2020-01-02
  revest backtest 2020-01-02 2024-12-31 --capital 50000 --verbose
  revest backtest --sweep-stops 0.03,0.05,0.08`,
	Args: cobra.MaximumNArgs(2),
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().BoolVar(&backtestVerbose, "verbose", false, "Log every fill and exit")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "Initial capital (default from strategy.backtest)")
	backtestCmd.Flags().BoolVar(&backtestTrades, "trades", false, "Include the trade list in the output")
	backtestCmd.Flags().Float64SliceVar(&backtestStops, "sweep-stops", nil, "Run one replay per standard stop fraction, e.g. 0.03,0.05,0.08")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	req := &models.BacktestRequest{Capital: backtestCapital}
	if len(args) > 0 {
		req.Start = args[0]
	}
	if len(args) > 1 {
		req.End = args[1]
	}

	return withApp(func(ctx context.Context, app *server.App) error {
		if req.Capital == 0 {
			req.Capital = app.Config().Strategy.Backtest.InitialCapital
		}
		if err := prepare(req); err != nil {
			return err
		}

		if len(backtestStops) > 0 {
			return runSweep(ctx, app, *req)
		}

		report, err := app.Backtests.Run(ctx, *req, backtestVerbose)
		if err != nil {
			return err
		}
		out := map[string]interface{}{
			"start":           report.Result.Start,
			"end":             report.Result.End,
			"initial_capital": report.Result.InitialCapital,
			"final_capital":   report.Result.FinalCapital,
			"summary":         report.Summary,
			"benchmark":       report.Benchmark,
		}
		if backtestTrades {
			out["trades"] = report.Result.Trades
		}
		return printJSON(out)
	})
}

func runSweep(ctx context.Context, app *server.App, req models.BacktestRequest) error {
	results, err := app.Backtests.SweepStops(ctx, req, backtestStops)
	if err != nil {
		return err
	}
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		row := map[string]interface{}{"scenario": r.Scenario}
		if r.Err != nil {
			row["error"] = r.Err.Error()
		} else {
			row["summary"] = r.Summary
			row["final_capital"] = r.Result.FinalCapital
		}
		out = append(out, row)
	}
	return printJSON(out)
}
