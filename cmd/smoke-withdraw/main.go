package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fastjob.dev/devtools/internal/api"
	"fastjob.dev/devtools/internal/config"
	"fastjob.dev/devtools/internal/obs"
	"fastjob.dev/devtools/internal/scenario"
)

var version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	obs.Setup(cfg.LogLevel)
	obs.InitBuildInfo("smoke-withdraw", version)
	defer func() {
		if err := obs.WriteMetrics(cfg.MetricsFile); err != nil {
			obs.Logger().Error().Err(err).Str("path", cfg.MetricsFile).Msg("write metrics")
		}
	}()

	if err := cfg.RequireBearerToken(); err != nil {
		fmt.Printf("❌ Test failed with error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := scenario.NewReporter(os.Stdout)
	client := api.New(cfg.BaseURL,
		api.WithToken(cfg.BearerToken),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithRateLimit(cfg.RequestsPerSecond),
		api.WithResponseHook(report.Exchange),
	)

	w := scenario.NewWithdrawal(client, report)
	w.Strict = cfg.StrictBalance
	w.GuardReserve = cfg.ReserveGuard
	if _, err := w.Run(ctx); err != nil {
		obs.Logger().Debug().Err(err).Msg("withdraw check failed")
		return 1
	}
	return 0
}
