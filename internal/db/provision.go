package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/zora/internal/catalog"
	"github.com/geocoder89/zora/internal/domain/product"
	"github.com/geocoder89/zora/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var ErrNoManifest = errors.New("seeding requested without a manifest source")

// TxBeginner is the slice of *pgxpool.Pool the provisioner needs. The
// transaction holds one pooled connection until commit or rollback.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type ManifestSource interface {
	Load(ctx context.Context) ([]product.Product, error)
	Schema() catalog.Schema
}

type EnsureOptions struct {
	WithSeed bool
	Manifest ManifestSource
	Logger   *slog.Logger
	Prom     *observability.Prom
}

type EnsureResult struct {
	SeededProducts int
}

// Ensure brings the schema up to date and, when asked, upserts the manifest
// products. Everything runs in one transaction: on any failure nothing is
// committed and the error is returned.
func Ensure(ctx context.Context, conn TxBeginner, opts EnsureOptions) (res EnsureResult, err error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var products []product.Product
	schema := catalog.SchemaV2

	if opts.WithSeed {
		if opts.Manifest == nil {
			return EnsureResult{}, ErrNoManifest
		}

		products, err = opts.Manifest.Load(ctx)
		if err != nil {
			return EnsureResult{}, fmt.Errorf("load manifest: %w", err)
		}

		schema = opts.Manifest.Schema()
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return EnsureResult{}, fmt.Errorf("begin provisioning tx: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}

		res = EnsureResult{}

		rbErr := tx.Rollback(ctx)
		if rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.ErrorContext(ctx, "provisioning rollback failed", "err", rbErr)
		}
	}()

	for _, stmt := range schemaStatements {
		err = opts.Prom.ObserveDB(stmt.op, func() error {
			_, e := tx.Exec(ctx, stmt.sql)
			return e
		})

		if err != nil {
			err = fmt.Errorf("%s: %w", stmt.op, err)
			return
		}
	}

	if opts.WithSeed {
		res.SeededProducts, err = seedProducts(ctx, tx, schema, products, opts.Prom)
		if err != nil {
			return
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		err = fmt.Errorf("commit provisioning tx: %w", err)
		return
	}

	if opts.Prom != nil {
		opts.Prom.SeededProducts.Add(float64(res.SeededProducts))
	}

	log.InfoContext(ctx, "schema ensured", "with_seed", opts.WithSeed, "seeded_products", res.SeededProducts)

	return res, nil
}

func seedProducts(ctx context.Context, tx pgx.Tx, schema catalog.Schema, products []product.Product, prom *observability.Prom) (int, error) {
	seeded := 0

	for _, p := range products {
		query, args := upsertArgs(schema, p)

		err := prom.ObserveDB("provision.upsert_product", func() error {
			_, e := tx.Exec(ctx, query, args...)
			return e
		})

		if err != nil {
			return 0, fmt.Errorf("upsert product %d: %w", p.ID, err)
		}

		seeded++
	}

	return seeded, nil
}

// upsertArgs sends decimals as fixed-point text so NUMERIC columns receive
// exactly the rounded manifest values.
func upsertArgs(schema catalog.Schema, p product.Product) (string, []any) {
	price := decimal.NewFromFloat(p.Price).StringFixed(2)

	if schema == catalog.SchemaV1 {
		return upsertProductV1, []any{p.ID, p.Name, price, p.Category, p.Description, p.Image}
	}

	vat := decimal.NewFromFloat(p.VATRate).StringFixed(4)

	return upsertProductV2, []any{p.ID, p.Name, price, vat, p.InventoryStatus, p.Category, p.Description, p.Image}
}
