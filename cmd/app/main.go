package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"AssetRevest/internal/di"
	"AssetRevest/pkg/config"
	"AssetRevest/pkg/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "revest",
	Short: "Stage-based ETF rotation: indicators, daily signal, live portfolio and backtests",
	Long: `revest computes moving-average stages for a small ETF universe, produces
the daily rotation decision, tracks a single-position live portfolio and
replays the strategy over history.

Examples:
  revest init
  revest update
  revest signal
  revest backtest 2020-01-02 2024-12-31 --verbose
  revest serve --config config/config.yaml`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (defaults only when empty)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadApp reads the config and wires every dependency.
func loadApp() (*server.App, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, nil
}

// withApp runs fn against a wired app and releases it afterwards.
func withApp(fn func(ctx context.Context, app *server.App) error) error {
	app, err := loadApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "close: %v\n", cerr)
		}
	}()
	return fn(context.Background(), app)
}

var validate = validator.New()

// prepare applies default tags and validates a request built from flags.
func prepare(req interface{}) error {
	if err := defaults.Set(req); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
