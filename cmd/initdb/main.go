// Command initdb creates or upgrades the storefront tables and seeds the
// catalog from the product manifest.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/geocoder89/zora/internal/cache"
	"github.com/geocoder89/zora/internal/catalog"
	"github.com/geocoder89/zora/internal/config"
	"github.com/geocoder89/zora/internal/db"
	"github.com/geocoder89/zora/internal/observability"
	"github.com/geocoder89/zora/internal/redisclient"
)

func main() {
	cfg := config.Load()

	manifestPath := flag.String("manifest", cfg.ManifestPath, "product manifest path")
	schemaName := flag.String("schema", cfg.ManifestSchema, "manifest schema (v1 or v2)")
	schemaOnly := flag.Bool("schema-only", false, "create/upgrade tables without seeding")
	timeout := flag.Duration("timeout", time.Minute, "overall provisioning timeout")
	flag.Parse()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log, *manifestPath, *schemaName, !*schemaOnly, *timeout); err != nil {
		log.Error("database provisioning failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger, manifestPath, schemaName string, withSeed bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	schema, err := catalog.ParseSchema(schemaName)
	if err != nil {
		return err
	}

	pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	opts := db.EnsureOptions{WithSeed: withSeed, Logger: log}
	if withSeed {
		opts.Manifest = catalog.NewLoader(os.DirFS(filepath.Dir(manifestPath)), filepath.Base(manifestPath), schema, log)
	}

	res, err := db.Ensure(ctx, pool, opts)
	if err != nil {
		return err
	}

	if res.SeededProducts == 0 {
		log.Info("database schema ensured")
		return nil
	}

	log.Info("database seed complete", "products", res.SeededProducts, "schema", schema.String())

	if cfg.RedisEnabled() {
		invalidateProductCache(ctx, cfg, log)
	}

	return nil
}

// invalidateProductCache drops cached listings so running API instances
// serve the new catalog. Failure is logged, not fatal: entries expire on
// their own.
func invalidateProductCache(ctx context.Context, cfg config.Config, log *slog.Logger) {
	rc, err := redisclient.Connect(ctx, redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn("product cache not invalidated", "err", err)
		return
	}
	defer func() { _ = rc.Close() }()

	if err := cache.NewRedisProducts(rc.Raw(), cfg.ProductsCacheTTL, nil, log).InvalidateProducts(ctx); err != nil {
		log.Warn("product cache not invalidated", "err", err)
		return
	}

	log.Info("product cache invalidated")
}
