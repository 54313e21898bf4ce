package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/zora/internal/domain/product"
	"github.com/geocoder89/zora/internal/observability"
	"github.com/jackc/pgx/v5"
)

type ProductsRepo struct {
	db   DBTX
	prom *observability.Prom
}

func NewProductsRepo(db DBTX, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{
		db:   db,
		prom: prom,
	}
}

const productColumns = `id, name, price, vat_rate, inventory_status, category, description, image`

func scanProduct(row pgx.Row, p *product.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.VATRate,
		&p.InventoryStatus,
		&p.Category,
		&p.Description,
		&p.Image,
	)
}

func (r *ProductsRepo) List(ctx context.Context, filter product.ListFilter) (products []product.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products`

	var args []any

	if filter.Category != nil {
		query += ` WHERE category = $1`
		args = append(args, *filter.Category)
	}

	query += ` ORDER BY id ASC`

	err = r.prom.ObserveDB("products.list", func() error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		products = make([]product.Product, 0)

		for rows.Next() {
			var p product.Product

			if err := scanProduct(rows, &p); err != nil {
				return err
			}

			products = append(products, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id int64) (product.Product, error) {
	var p product.Product

	err := r.prom.ObserveDB("products.get_by_id", func() error {
		return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id), &p)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}

		return product.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}

	return p, nil
}
