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
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Println("Usage: smoke-bankflow <base_url> [username] [password] [email]")
		fmt.Println("Example: smoke-bankflow http://localhost:8536 testuser123 password123 test@example.com")
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	obs.Setup(cfg.LogLevel)
	obs.InitBuildInfo("smoke-bankflow", version)
	defer func() {
		if err := obs.WriteMetrics(cfg.MetricsFile); err != nil {
			obs.Logger().Error().Err(err).Str("path", cfg.MetricsFile).Msg("write metrics")
		}
	}()

	creds := scenario.Credentials{Username: "testuser123", Password: "password123"}
	if len(args) > 1 {
		creds.Username = args[1]
	}
	if len(args) > 2 {
		creds.Password = args[2]
	}
	creds.Email = creds.Username + "@example.com"
	if len(args) > 3 {
		creds.Email = args[3]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := scenario.NewReporter(os.Stdout)
	client := api.New(args[0],
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithRateLimit(cfg.RequestsPerSecond),
		api.WithResponseHook(report.Exchange),
	)

	if err := scenario.NewBankFlow(client, report).Run(ctx, creds); err != nil {
		obs.Logger().Debug().Err(err).Msg("bank flow failed")
		return 1
	}
	return 0
}
