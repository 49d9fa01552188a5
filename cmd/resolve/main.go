package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"mates/internal/adapters/gotrue"
	"mates/internal/adapters/memory"
	"mates/internal/adapters/postgres"
	"mates/internal/application/authstate"
	"mates/internal/application/magiclink"
	"mates/internal/config"
	"mates/internal/domain"
	"mates/internal/logger"
)

type consolePresenter struct{}

func (consolePresenter) Navigate(_ context.Context, route domain.Route) {
	fmt.Fprintf(os.Stderr, "-> navigate %s\n", route)
}

func (consolePresenter) Alert(_ context.Context, a domain.Alert) {
	fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", a.Kind, a.Title, a.Message)
}

func main() {
	raw := flag.String("url", "", "deep link to resolve (or pass it as the first argument)")
	flag.Parse()

	if *raw == "" && flag.NArg() > 0 {
		*raw = flag.Arg(0)
	}
	if *raw == "" {
		fmt.Println("Usage: go run cmd/resolve/main.go -url='mates://auth/callback#access_token=...&refresh_token=...'")
		os.Exit(1)
	}

	os.Exit(run(*raw))
}

func run(raw string) int {
	ctx := context.Background()
	cfg := config.Load()
	log := logger.New(cfg)

	var storage domain.SessionStorage = memory.NewSessionStorage()
	if cfg.DatabaseURL != "" {
		dbPool, err := postgres.InitDB(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Error("failed to init DB", "error", err)
			return 1
		}
		defer dbPool.Close()

		storage = postgres.NewSessionStorage(dbPool)
	}

	authClient := gotrue.NewClient(gotrue.Config{
		BaseURL:    cfg.AuthURL,
		APIKey:     cfg.AuthAPIKey,
		StorageKey: cfg.AuthStorageKey,
		Timeout:    cfg.AuthTimeout,
	}, storage, log)

	resolver := magiclink.NewResolver(magiclink.ResolverDeps{
		Auth:            authClient,
		State:           authstate.NewStore(),
		Presenter:       consolePresenter{},
		ExchangeTimeout: cfg.AuthTimeout,
	}, log)

	outcome := resolver.Resolve(ctx, raw)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(outcome)

	if outcome.Kind == domain.OutcomeAuthError || outcome.Kind == domain.OutcomeAuthFailure {
		return 2
	}
	return 0
}
