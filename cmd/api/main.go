package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/geocoder89/zora/internal/auth"
	"github.com/geocoder89/zora/internal/cache"
	"github.com/geocoder89/zora/internal/catalog"
	"github.com/geocoder89/zora/internal/config"
	"github.com/geocoder89/zora/internal/db"
	httpx "github.com/geocoder89/zora/internal/http"
	"github.com/geocoder89/zora/internal/observability"
	"github.com/geocoder89/zora/internal/redisclient"
	"github.com/geocoder89/zora/internal/repo/memory"
	"github.com/geocoder89/zora/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("config loaded", "config", cfg.String())

	ctx := context.Background()

	if cfg.OTelEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "zora-api",
			Env:         cfg.Env,
			Endpoint:    cfg.OTelEndpoint,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	schema, err := catalog.ParseSchema(cfg.ManifestSchema)
	if err != nil {
		log.Error("invalid manifest schema", "err", err)
		os.Exit(1)
	}
	loader := catalog.NewLoader(os.DirFS(filepath.Dir(cfg.ManifestPath)), filepath.Base(cfg.ManifestPath), schema, log)

	deps := httpx.Deps{
		Env:                    cfg.Env,
		Prom:                   prom,
		Gatherer:               reg,
		CORSAllowedOrigins:     cfg.CORSAllowedOrigins,
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
		Tracing:                cfg.OTelEnabled,
	}

	var manifestRepo *memory.ProductsRepo

	switch cfg.ProductsSource {
	case config.ProductsFromManifest:
		manifestRepo, err = memory.NewProductsRepoFromManifest(ctx, loader)
		if err != nil {
			log.Error("manifest load failed", "path", cfg.ManifestPath, "err", err)
			os.Exit(1)
		}
		deps.Products = manifestRepo
		deps.Users = memory.NewUsersRepo()

	case config.ProductsFromPostgres:
		pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			log.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.EnsureSchemaOnStart {
			ectx, cancel := config.WithTimeout(30 * time.Second)
			_, err := db.Ensure(ectx, pool, db.EnsureOptions{Logger: log, Prom: prom})
			cancel()
			if err != nil {
				log.Error("schema ensure failed", "err", err)
				os.Exit(1)
			}
		}

		deps.Products = postgres.NewProductsRepo(pool, prom)
		deps.Users = postgres.NewUsersRepo(pool, prom)
		deps.Ping = pool.Ping

	default:
		log.Error("unknown PRODUCTS_SOURCE", "value", cfg.ProductsSource)
		os.Exit(1)
	}

	var listCache productsCache = cache.NewMemoryProducts(cfg.ProductsCacheTTL, prom)

	if cfg.RedisEnabled() {
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			// the catalog still works without a shared cache
			log.Warn("redis unavailable, using in-process product cache", "err", err)
		} else {
			defer func() { _ = rc.Close() }()
			listCache = cache.NewRedisProducts(rc.Raw(), cfg.ProductsCacheTTL, prom, log)
		}
	}
	deps.ProductsCache = listCache

	if cfg.JWTEnabled() {
		deps.JWT = auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	}

	router := httpx.NewRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "products", cfg.ProductsSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	if manifestRepo != nil {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		go watchReload(hup, func() {
			rctx, cancel := config.WithTimeout(10 * time.Second)
			defer cancel()
			_ = reloadCatalog(rctx, manifestRepo, loader, listCache, log)
		})
	}

	select {
	case <-stop:
		log.Info("server shutting down")
	case err := <-serveErr:
		log.Error("server failed", "err", err)
		return
	}

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return
	}

	log.Info("shutdown complete")
}
