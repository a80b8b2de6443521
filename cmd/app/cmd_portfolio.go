package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/server"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Operate the live single-position portfolio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *server.App) error {
			holdings, err := app.Portfolio.Status(ctx)
			if err != nil {
				return err
			}
			return printJSON(holdings)
		})
	},
}

var (
	enterReq   models.EnterRequest
	exitReq    models.ExitRequest
	stopDate   string
	historyMax int
	equityMax  int
)

var enterCmd = &cobra.Command{
	Use:   "enter SYMBOL PRICE",
	Short: "Record an entry fill",
	Long: `Record an entry fill. Size comes from --shares, else --capital divided by
the price, else all cash. Stop and target follow the trade parameters of the
held stage.

Examples:
  revest portfolio enter SPY 512.40
  revest portfolio enter SH 14.10 --direction LONG_INVERSE --tier 4 --date 2024-08-05`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := parsePrice(args[1])
		if err != nil {
			return err
		}
		req := enterReq
		req.Symbol = strings.ToUpper(args[0])
		req.Price = price
		if err := prepare(&req); err != nil {
			return err
		}
		return withApp(func(ctx context.Context, app *server.App) error {
			st, err := app.Portfolio.Enter(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(st)
		})
	},
}

var exitCmd = &cobra.Command{
	Use:   "exit PRICE",
	Short: "Record an exit fill, full or partial",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := parsePrice(args[0])
		if err != nil {
			return err
		}
		req := exitReq
		req.Price = price
		req.Reason = strings.ToUpper(req.Reason)
		if err := prepare(&req); err != nil {
			return err
		}
		return withApp(func(ctx context.Context, app *server.App) error {
			res, err := app.Portfolio.Exit(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop PRICE",
	Short: "Move the protective stop of the open position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stop, err := parsePrice(args[0])
		if err != nil {
			return err
		}
		req := models.StopRequest{Stop: stop, Date: stopDate}
		if err := prepare(&req); err != nil {
			return err
		}
		return withApp(func(ctx context.Context, app *server.App) error {
			st, err := app.Portfolio.UpdateStop(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(st)
		})
	},
}

var capitalCmd = &cobra.Command{
	Use:   "capital CASH",
	Short: "Set the cash balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cash, err := parsePrice(args[0])
		if err != nil {
			return err
		}
		req := models.CapitalRequest{Cash: cash}
		if err := prepare(&req); err != nil {
			return err
		}
		return withApp(func(ctx context.Context, app *server.App) error {
			st, err := app.Portfolio.SetCapital(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(st)
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List closed trades, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *server.App) error {
			trades, err := app.Portfolio.TradeHistory(ctx, historyMax)
			if err != nil {
				return err
			}
			return printJSON(trades)
		})
	},
}

var equityCmd = &cobra.Command{
	Use:   "equity",
	Short: "Show the daily log equity curve",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *server.App) error {
			curve, err := app.Portfolio.EquityCurve(ctx, equityMax)
			if err != nil {
				return err
			}
			return printJSON(curve)
		})
	},
}

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(enterCmd, exitCmd, stopCmd, capitalCmd, historyCmd, equityCmd)

	enterCmd.Flags().Float64Var(&enterReq.Shares, "shares", 0, "Shares bought")
	enterCmd.Flags().Float64Var(&enterReq.Capital, "capital", 0, "Capital committed (ignored with --shares)")
	enterCmd.Flags().StringVar(&enterReq.Date, "date", "", "Fill date (YYYY-MM-DD, default today)")
	enterCmd.Flags().StringVar(&enterReq.Direction, "direction", "", "LONG or LONG_INVERSE")
	enterCmd.Flags().IntVar(&enterReq.Tier, "tier", 0, "Rotation tier 1-4")

	exitCmd.Flags().BoolVar(&exitReq.Partial, "partial", false, "Sell the plan's partial fraction")
	exitCmd.Flags().StringVar(&exitReq.Reason, "reason", "", "MANUAL, STOP_HIT, STAGE_CHANGE, TARGET_HIT or VIX_EMERGENCY")
	exitCmd.Flags().StringVar(&exitReq.Date, "date", "", "Fill date (YYYY-MM-DD, default today)")

	stopCmd.Flags().StringVar(&stopDate, "date", "", "Order date (YYYY-MM-DD, default today)")

	historyCmd.Flags().IntVar(&historyMax, "limit", 50, "Maximum trades")
	equityCmd.Flags().IntVar(&equityMax, "limit", 250, "Maximum daily log rows")
}

func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
