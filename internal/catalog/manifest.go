package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/geocoder89/zora/internal/domain/product"
)

var ErrInvalidJSON = errors.New("manifest is not valid JSON")

// Parse turns a manifest document into validated products. Invalid JSON is an
// error; a document without a list-valued "products" field yields no products.
// Entries that fail validation are dropped and reported in rejected.
func Parse(data []byte, schema Schema) (products []product.Product, rejected []*RecordError, err error) {
	if !json.Valid(data) {
		return nil, nil, ErrInvalidJSON
	}

	var top map[string]json.RawMessage

	if err := json.Unmarshal(data, &top); err != nil {
		return []product.Product{}, nil, nil
	}

	var entries []json.RawMessage

	if err := json.Unmarshal(top["products"], &entries); err != nil {
		return []product.Product{}, nil, nil
	}

	products = make([]product.Product, 0, len(entries))

	for i, raw := range entries {
		p, err := ParseRecord(i, raw, schema)
		if err != nil {
			var recErr *RecordError
			if errors.As(err, &recErr) {
				rejected = append(rejected, recErr)
			}
			continue
		}

		products = append(products, p)
	}

	return products, rejected, nil
}

// Loader reads the manifest from a file system on every call.
type Loader struct {
	fsys   fs.FS
	name   string
	schema Schema
	log    *slog.Logger
}

func NewLoader(fsys fs.FS, name string, schema Schema, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}

	return &Loader{
		fsys:   fsys,
		name:   name,
		schema: schema,
		log:    log,
	}
}

func (l *Loader) Schema() Schema {
	return l.schema
}

func (l *Loader) Load(ctx context.Context) ([]product.Product, error) {
	data, err := fs.ReadFile(l.fsys, l.name)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", l.name, err)
	}

	products, rejected, err := Parse(data, l.schema)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", l.name, err)
	}

	for _, r := range rejected {
		l.log.DebugContext(ctx, "manifest record dropped", "index", r.Index, "field", r.Field, "reason", r.Reason)
	}

	l.log.InfoContext(ctx, "manifest loaded",
		"path", l.name,
		"schema", l.schema.String(),
		"products", len(products),
		"dropped", len(rejected),
	)

	return products, nil
}
