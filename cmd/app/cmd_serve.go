package main

import (
	"context"

	"github.com/spf13/cobra"

	applogger "AssetRevest/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the market data consumer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		cfg := app.Config()
		app.Logger().Info("starting api",
			applogger.String("backend", cfg.Store.Backend),
			applogger.Int("port", cfg.Server.Port),
			applogger.Bool("kafka", cfg.Kafka.Enabled),
			applogger.Bool("redis", cfg.Redis.Enabled),
		)
		return app.Serve(context.Background())
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run queued backtests and the market data consumer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		cfg := app.Config()
		app.Logger().Info("starting worker",
			applogger.String("backend", cfg.Store.Backend),
			applogger.Int("workers", cfg.Queue.Workers),
			applogger.Bool("kafka", cfg.Kafka.Enabled),
		)
		return app.Work(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd)
}
