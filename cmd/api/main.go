package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appsisted/parkhub/internal/cache"
	"github.com/appsisted/parkhub/internal/config"
	httpx "github.com/appsisted/parkhub/internal/http"
	"github.com/appsisted/parkhub/internal/observability"
	"github.com/appsisted/parkhub/internal/repo/cassandra"
	"github.com/appsisted/parkhub/internal/service/ledger"
	"github.com/appsisted/parkhub/internal/service/registry"
	"github.com/appsisted/parkhub/internal/service/sites"
	"github.com/appsisted/parkhub/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing
	otelShutdown, err := observability.InitTracer(context.Background(), "parkhub", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracing disabled", "err", err)
	} else {
		defer func() {
			ctx, cancel := config.WithTimeout(3 * time.Second)
			defer cancel()
			_ = otelShutdown(ctx)
		}()
	}

	// metrics
	promRegistry := prometheus.NewRegistry()
	prom := observability.NewProm(promRegistry)

	// storage
	session, err := store.Connect(store.Config{
		Hosts:          cfg.CassandraHosts,
		Timeout:        cfg.StoreTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
	})

	if err != nil {
		log.Error("store connection failed", "err", err)
		os.Exit(1)
	}

	defer session.Close()

	// site cache: redis when configured, in-process fallback otherwise
	var siteCache cache.Cache

	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})

		defer rc.Close()

		pingCtx, cancel := config.WithTimeout(2 * time.Second)
		err = rc.Ping(pingCtx)
		cancel()

		if err != nil {
			log.Warn("redis unreachable, using in-process site cache", "err", err)
			siteCache = cache.NewMemory(cfg.CacheTTL)
		} else {
			siteCache = rc
		}
	} else {
		siteCache = cache.NewMemory(cfg.CacheTTL)
	}

	// repositories and services
	usersRepo := cassandra.NewUsersRepo(session, cfg.Keyspace, prom)
	sitesRepo := cassandra.NewSitesRepo(session, cfg.Keyspace, prom)

	userRegistry := registry.New(usersRepo)

	siteRegistry := sites.New(sitesRepo, siteCache, prom)
	siteRegistry.Retries = cfg.CASRetries

	balanceLedger := ledger.New(usersRepo, siteRegistry, log, prom)
	balanceLedger.Retries = cfg.CASRetries

	if cfg.BootstrapSchema {
		ctx, cancel := config.WithTimeout(30 * time.Second)

		err = store.CreateAll(ctx, session, cfg.Keyspace)

		if err == nil {
			err = siteRegistry.Seed(ctx, sites.DefaultSeed())
		}

		cancel()

		if err != nil {
			log.Error("schema bootstrap failed", "err", err)
			os.Exit(1)
		}

		log.Info("schema bootstrapped", "keyspace", cfg.Keyspace)
	}

	ping := func() error {
		ctx, cancel := config.WithTimeout(1 * time.Second)
		defer cancel()

		return session.Query("SELECT release_version FROM system.local").WithContext(ctx).Exec()
	}

	router := httpx.NewRouter(httpx.Deps{
		Log:     log,
		Prom:    prom,
		Metrics: promRegistry,
		Users:   userRegistry,
		Sites:   siteRegistry,
		Parking: balanceLedger,
		Ping:    ping,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
