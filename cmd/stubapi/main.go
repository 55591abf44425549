package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"fastjob.dev/devtools/internal/config"
	"fastjob.dev/devtools/internal/obs"
	"fastjob.dev/devtools/internal/store/pg"
	"fastjob.dev/devtools/internal/stubapi"
)

var version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	obs.Setup(cfg.LogLevel)
	obs.InitBuildInfo("stubapi", version)
	log := obs.Logger()

	var (
		addr         = flag.String("addr", cfg.StubAddr, "listen address")
		balance      = flag.String("balance", "100", "opening wallet balance of new users")
		country      = flag.String("country", stubapi.DefaultCountry, "country assigned when registration omits one")
		requireLogin = flag.Bool("require-login", false, "registration returns no jwt; clients must log in")
		usePG        = flag.Bool("pg", false, "record login tokens in the login_token table at FASTJOB_DB_DSN")
	)
	flag.Parse()

	if err := cfg.RequireSecret(); err != nil {
		log.Fatal().Err(err).Msg("stubapi")
	}
	opening, err := decimal.NewFromString(*balance)
	if err != nil {
		log.Fatal().Err(err).Str("balance", *balance).Msg("invalid -balance")
	}

	opts := stubapi.Options{
		Secret:         cfg.Secret,
		DefaultCountry: *country,
		InitialBalance: opening,
		RequireLogin:   *requireLogin,
	}
	var store *pg.Store
	if *usePG {
		store, err = pg.Open(cfg.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open db")
		}
		opts.Tokens = store
		opts.Ready = store.Ping
	}

	stub, err := stubapi.New(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("create stub api")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           stub.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("version", version).Str("addr", srv.Addr).Bool("pg", *usePG).Msg("starting stub api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if store != nil {
		_ = store.Close()
	}
	log.Info().Msg("stopped")
}
