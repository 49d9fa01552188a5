package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mates/internal/adapters/gotrue"
	httpadapter "mates/internal/adapters/http"
	"mates/internal/adapters/memory"
	"mates/internal/adapters/postgres"
	redisadapter "mates/internal/adapters/redis"
	"mates/internal/adapters/ws"
	"mates/internal/adapters/ws/subscribers"
	"mates/internal/application/authstate"
	"mates/internal/application/magiclink"
	"mates/internal/application/session"
	"mates/internal/config"
	"mates/internal/domain"
	"mates/internal/event"
	"mates/internal/logger"
	"mates/internal/workers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.New(cfg)

	if cfg.AuthAPIKey == "" {
		log.Warn("AUTH_API_KEY is empty, auth service requests will likely be rejected")
	}

	bus := event.New(log)

	store := authstate.NewStore()
	store.Subscribe(func(st domain.AuthState) {
		bus.Publish(domain.EventNameAuthStateChanged, domain.EventAuthStateChanged{
			State: st,
			At:    time.Now(),
		})
	})

	var storage domain.SessionStorage = memory.NewSessionStorage()
	if cfg.DatabaseURL != "" {
		dbPool, err := postgres.InitDB(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Error("failed to init DB", "error", err)
			return
		}
		defer dbPool.Close()

		storage = postgres.NewSessionStorage(dbPool)
	} else {
		log.Warn("DATABASE_URL is empty, sessions will not survive a restart")
	}

	var (
		cache    domain.LinkCache
		sweeper  workers.Sweeper
		outcomes domain.LinkOutcomeLog
	)

	if cfg.RedisURL != "" {
		rdb, err := redisadapter.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to init redis", "error", err)
			return
		}
		defer rdb.Close()

		registry := redisadapter.NewRegistry(rdb, log)
		bus.Subscribe(domain.EventNameLinkResolved, registry.Handle)
		outcomes = registry

		if cfg.DedupTTL > 0 {
			cache = redisadapter.NewLinkCache(rdb, cfg.DedupTTL)
		}
	} else if cfg.DedupTTL > 0 {
		memCache := memory.NewLinkCache(cfg.DedupTTL)
		cache = memCache
		sweeper = memCache
	}

	authClient := gotrue.NewClient(gotrue.Config{
		BaseURL:    cfg.AuthURL,
		APIKey:     cfg.AuthAPIKey,
		StorageKey: cfg.AuthStorageKey,
		Timeout:    cfg.AuthTimeout,
	}, storage, log)

	sessionService := session.NewService(authClient, store, cfg.RefreshMargin, log)

	hub := ws.NewHub(ctx, log)
	hub.OnSubscribe(domain.WsChannelAuthState, func() *domain.WsServerEvent {
		return &domain.WsServerEvent{
			Channel: domain.WsChannelAuthState,
			Event:   domain.EventNameAuthStateChanged,
			Payload: domain.EventAuthStateChanged{State: store.Snapshot(), At: time.Now()},
		}
	})
	go hub.Run()
	subscribers.Register(bus, hub)

	resolver := magiclink.NewResolver(magiclink.ResolverDeps{
		Auth:            authClient,
		State:           store,
		Presenter:       magiclink.NewBusPresenter(bus),
		Cache:           cache,
		Bus:             bus,
		ExchangeTimeout: cfg.AuthTimeout,
	}, log)

	feed := magiclink.NewFeed(cfg.InitialURL)
	listener := magiclink.NewListener(resolver, log)

	if err := sessionService.Restore(ctx); err != nil {
		log.Warn("session: restore failed", "error", err)
	}

	listenerDone := make(chan error, 1)
	go func() {
		listenerDone <- listener.Run(ctx, feed)
	}()

	workerManager := workers.NewManager(cfg, log, workers.NewScheduler(log), &workers.ManagerServices{
		Session:   sessionService,
		LinkCache: sweeper,
	})
	workerManager.Start(ctx)

	router := httpadapter.NewRouter(cfg, &httpadapter.RouterDeps{
		DeepLink: httpadapter.NewDeepLinkHandler(feed, resolver, outcomes, cfg.AppScheme, log),
		Auth:     httpadapter.NewAuthHandler(sessionService, log),
		Ws:       ws.NewHandler(hub, cfg, log).Serve,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http: starting server", "address", cfg.Address)
		errCh <- srv.ListenAndServe()
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http: server shutdown error", "error", err)
		}

	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http: server error", "error", err)
		}
	}

	stop()
	hub.Stop()

	if err := <-listenerDone; err != nil {
		log.Error("deeplink: listener stopped with error", "error", err)
	}

	log.Info("server stopped")
}
