package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/geocoder89/zora/internal/http/handlers"
	"github.com/geocoder89/zora/internal/repo/memory"
)

// productsCache is what both product cache backends offer.
type productsCache interface {
	handlers.ProductsCache
	InvalidateProducts(ctx context.Context) error
}

type catalogReloader interface {
	Reload(ctx context.Context, loader memory.ProductsLoader) (int, error)
}

type productsInvalidator interface {
	InvalidateProducts(ctx context.Context) error
}

// reloadCatalog re-reads the manifest into repo and drops cached listings so
// the new catalog is served at once. A failed load keeps the old catalog and
// the cache untouched.
func reloadCatalog(ctx context.Context, repo catalogReloader, loader memory.ProductsLoader, c productsInvalidator, log *slog.Logger) error {
	n, err := repo.Reload(ctx, loader)
	if err != nil {
		log.ErrorContext(ctx, "catalog reload failed, keeping previous catalog", "err", err)
		return err
	}

	if err := c.InvalidateProducts(ctx); err != nil {
		// entries still expire on their own
		log.WarnContext(ctx, "product cache not invalidated after reload", "err", err)
	}

	log.InfoContext(ctx, "catalog reloaded", "products", n)
	return nil
}

// watchReload runs reload for every signal until sig is closed.
func watchReload(sig <-chan os.Signal, reload func()) {
	for range sig {
		reload()
	}
}
