package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/zora/internal/cache"
	"github.com/geocoder89/zora/internal/domain/product"
	"github.com/gin-gonic/gin"
)

type ProductsReader interface {
	List(ctx context.Context, filter product.ListFilter) ([]product.Product, error)
	GetByID(ctx context.Context, id int64) (product.Product, error)
}

// ProductsCache is satisfied by cache.MemoryProducts and cache.RedisProducts.
type ProductsCache interface {
	GetProducts(ctx context.Context, key string) ([]product.Product, bool)
	SetProducts(ctx context.Context, key string, products []product.Product)
}

type ProductsHandler struct {
	repo  ProductsReader
	cache ProductsCache
}

func NewProductsHandler(repo ProductsReader, c ProductsCache) *ProductsHandler {
	return &ProductsHandler{repo: repo, cache: c}
}

func (h *ProductsHandler) list(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	key := cache.ProductsListKey(filter.Category)

	if h.cache != nil {
		if products, ok := h.cache.GetProducts(ctx, key); ok {
			return products, nil
		}
	}

	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	products, err := h.repo.List(cctx, filter)
	if err != nil {
		return nil, err
	}

	if products == nil {
		products = []product.Product{}
	}

	if h.cache != nil {
		h.cache.SetProducts(ctx, key, products)
	}

	return products, nil
}

func filterFromQuery(ctx *gin.Context) product.ListFilter {
	var f product.ListFilter
	if c := strings.TrimSpace(ctx.Query("category")); c != "" {
		f.Category = &c
	}
	return f
}

// ListProducts answers GET /api/products with a JSON array ordered by id.
func (h *ProductsHandler) ListProducts(ctx *gin.Context) {
	products, err := h.list(ctx.Request.Context(), filterFromQuery(ctx))
	if err != nil {
		RespondInternal(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, 200, products)
}

// Data is the legacy {"products": [...]} envelope.
func (h *ProductsHandler) Data(ctx *gin.Context) {
	products, err := h.list(ctx.Request.Context(), product.ListFilter{})
	if err != nil {
		RespondInternal(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, 200, gin.H{"products": products})
}

func (h *ProductsHandler) GetProduct(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "Product id must be a positive integer", gin.H{"id": ctx.Param("id")})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	p, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			RespondNotFound(ctx, "Product not found")
			return
		}
		RespondInternal(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, 200, p)
}
