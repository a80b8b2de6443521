package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"AssetRevest/pkg/server"
	"AssetRevest/pkg/util"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the store schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *server.App) error {
			return app.InitSchema(ctx)
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Recompute indicators, stages, VIX and breadth from stored bars",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *server.App) error {
			res, err := app.Pipeline.Run(ctx)
			if res != nil {
				if perr := printJSON(res); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var statusDate string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest indicators, VIX and the marked portfolio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateFlag(statusDate)
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, app *server.App) error {
			snap, err := app.Daily.Market(ctx, date)
			if err != nil {
				return err
			}
			holdings, err := app.Portfolio.Status(ctx)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"date":       snap.Date,
				"indicators": snap.Indicators,
				"vix":        snap.Vix,
				"volume":     snap.Volume,
				"portfolio":  holdings,
			})
		})
	},
}

var stagesCmd = &cobra.Command{
	Use:   "stages [date]",
	Short: "Show the confirmed stage of every symbol",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := optionalDate(args, 0)
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, app *server.App) error {
			snap, err := app.Daily.Market(ctx, date)
			if err != nil {
				return err
			}
			return printJSON(snap.Stages)
		})
	},
}

var signalCmd = &cobra.Command{
	Use:   "signal [date]",
	Short: "Run the daily report: exit check, rotation and warnings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := optionalDate(args, 0)
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, app *server.App) error {
			report, err := app.Daily.Run(ctx, date)
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd, updateCmd, statusCmd, stagesCmd, signalCmd)
	statusCmd.Flags().StringVar(&statusDate, "date", "", "as-of date (YYYY-MM-DD, default latest)")
}

// optionalDate parses args[i] when present. A missing argument means latest.
func optionalDate(args []string, i int) (time.Time, error) {
	if len(args) <= i {
		return time.Time{}, nil
	}
	return parseDateFlag(args[i])
}

// parseDateFlag treats an empty value as the zero date.
func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, ok := util.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}
