package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"polymarket-updown-bot/internal/engine"
	"polymarket-updown-bot/internal/eod"
	"polymarket-updown-bot/internal/logger"
	"polymarket-updown-bot/internal/trace"
)

var (
	flagConfig string
	flagAsset  string
	flagWatch  bool
)

func main() {
	root := &cobra.Command{
		Use:   "polybot",
		Short: "Human-in-the-loop trader for 15-minute up/down rounds",
		Long: `polybot discovers the currently-live 15-minute up/down round for an
asset, aggregates real-time prices into candles, decides a direction, and
executes through the browser only after explicit operator confirmation.`,
		SilenceUsage: true,
		RunE:         run,
	}
	root.Flags().StringVar(&flagConfig, "config", "config.yaml", "path to the YAML configuration")
	root.Flags().StringVar(&flagAsset, "asset", "btc", "asset key to trade (btc, eth)")
	root.Flags().BoolVar(&flagWatch, "watch", false, "keep running cycles until interrupted")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := initializeSystem(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, cleanup, err := buildOrchestrator(ctx, flagConfig, flagAsset)
	if err != nil {
		return err
	}
	defer cleanup()
	defer writeDailySummary()
	defer func() {
		if err := trace.Shutdown(context.Background()); err != nil {
			logger.Warn(context.Background(), "tracer shutdown failed", "error", err.Error())
		}
	}()

	if flagWatch {
		logger.Info(ctx, "starting watch mode", "asset", flagAsset)
		return orch.Run(ctx)
	}
	return runOnce(ctx, orch)
}

func runOnce(ctx context.Context, orch *engine.Orchestrator) error {
	res, err := orch.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("cycle outcome: %s\n", res.Outcome)
	if res.Decision != nil {
		fmt.Printf("decision: %s via %s (stake $%.2f)\n", res.Decision.Decision, res.Decision.Rule, res.StakeUSD)
	}
	return nil
}

func writeDailySummary() {
	if path, err := eod.SummarizeToday(); err == nil && path != "" {
		logger.Info(context.Background(), "daily summary written", "path", path)
	}
}
