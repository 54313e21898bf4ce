package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/zora/internal/domain/product"
)

type ProductsLoader interface {
	Load(ctx context.Context) ([]product.Product, error)
}

// ProductsRepo serves the catalog straight from the manifest, without a
// database.
type ProductsRepo struct {
	mu    sync.RWMutex
	items map[int64]product.Product
}

func NewProductsRepo(products []product.Product) *ProductsRepo {
	r := &ProductsRepo{}
	r.replace(products)
	return r
}

// NewProductsRepoFromManifest loads the manifest once.
func NewProductsRepoFromManifest(ctx context.Context, loader ProductsLoader) (*ProductsRepo, error) {
	products, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	return NewProductsRepo(products), nil
}

// Reload swaps in a freshly loaded manifest. On error the old catalog stays.
func (r *ProductsRepo) Reload(ctx context.Context, loader ProductsLoader) (int, error) {
	products, err := loader.Load(ctx)
	if err != nil {
		return 0, err
	}

	r.replace(products)
	return len(products), nil
}

func (r *ProductsRepo) replace(products []product.Product) {
	items := make(map[int64]product.Product, len(products))
	// later entries win, same as sequential upserts
	for _, p := range products {
		items[p.ID] = p
	}

	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
}

func (r *ProductsRepo) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	r.mu.RLock()
	out := make([]product.Product, 0, len(r.items))
	for _, p := range r.items {
		if filter.Category != nil && p.Category != *filter.Category {
			continue
		}
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id int64) (product.Product, error) {
	r.mu.RLock()
	p, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return product.Product{}, product.ErrNotFound
	}

	return p, nil
}
