package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/geocoder89/zora/internal/domain/product"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	pricePlaces = 2
	vatPlaces   = 4
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// products.id is an INTEGER column
var maxID = decimal.NewFromInt(math.MaxInt32)

// Exponent range accepted before any arithmetic. Rounding a decimal rescales
// its coefficient by 10^|exp|, so literals like 1e1000000000 are refused
// outright.
const (
	maxExponent = 20
	minExponent = -64
)

// RecordError explains why a manifest entry was dropped.
type RecordError struct {
	Index  int
	Field  string
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("product[%d].%s: %s", e.Index, e.Field, e.Reason)
}

// rawRecord keeps every field undecoded so type mismatches are reported per
// field instead of failing the whole entry at once.
type rawRecord struct {
	ID              json.RawMessage `json:"id"`
	Name            json.RawMessage `json:"name"`
	Price           json.RawMessage `json:"price"`
	Category        json.RawMessage `json:"category"`
	Description     json.RawMessage `json:"description"`
	Image           json.RawMessage `json:"image"`
	VATRate         json.RawMessage `json:"vatRate"`
	InventoryStatus json.RawMessage `json:"inventoryStatus"`
}

// record is the coerced form checked by the validator. Upper bounds follow
// the columns, price NUMERIC(10,2) and vat_rate NUMERIC(6,4), so an accepted
// record can never overflow its upsert.
type record struct {
	ID              int64   `validate:"gt=0"`
	Name            string  `validate:"required"`
	Price           float64 `validate:"gte=0,lt=100000000"`
	Category        string  `validate:"required"`
	Description     string  `validate:"required"`
	Image           string  `validate:"required"`
	VATRate         float64 `validate:"gte=0,lt=100"`
	InventoryStatus string  `validate:"required"`
}

var jsonFieldNames = map[string]string{
	"ID":              "id",
	"Name":            "name",
	"Price":           "price",
	"Category":        "category",
	"Description":     "description",
	"Image":           "image",
	"VATRate":         "vatRate",
	"InventoryStatus": "inventoryStatus",
}

// ParseRecord coerces and validates a single manifest entry.
func ParseRecord(index int, raw json.RawMessage, schema Schema) (product.Product, error) {
	var in rawRecord

	if err := json.Unmarshal(raw, &in); err != nil {
		return product.Product{}, &RecordError{Index: index, Field: "*", Reason: "not an object"}
	}

	fail := func(field, reason string) (product.Product, error) {
		return product.Product{}, &RecordError{Index: index, Field: field, Reason: reason}
	}

	id, ok := integerField(in.ID)
	if !ok {
		return fail("id", "must be an integer")
	}

	var rec record
	rec.ID = id

	strs := []struct {
		name string
		raw  json.RawMessage
		dst  *string
	}{
		{"name", in.Name, &rec.Name},
		{"category", in.Category, &rec.Category},
		{"description", in.Description, &rec.Description},
		{"image", in.Image, &rec.Image},
	}

	for _, s := range strs {
		v, ok := stringField(s.raw)
		if !ok {
			return fail(s.name, "must be a string")
		}
		*s.dst = v
	}

	price, ok := numberField(in.Price)
	if !ok {
		return fail("price", "must be a finite number")
	}
	rec.Price = price.Round(pricePlaces).InexactFloat64()

	except := []string{"VATRate", "InventoryStatus"}

	if schema == SchemaV2 {
		vat, ok := numberField(in.VATRate)
		if !ok {
			return fail("vatRate", "must be a finite number")
		}
		rec.VATRate = vat.Round(vatPlaces).InexactFloat64()

		status, ok := stringField(in.InventoryStatus)
		if !ok {
			return fail("inventoryStatus", "must be a string")
		}
		rec.InventoryStatus = status
		except = nil
	}

	if err := validate.StructExcept(rec, except...); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fail(jsonFieldNames[verrs[0].StructField()], "failed "+verrs[0].Tag()+" validation")
		}
		return fail("*", err.Error())
	}

	p := product.Product{
		ID:          rec.ID,
		Name:        rec.Name,
		Price:       rec.Price,
		Category:    rec.Category,
		Description: rec.Description,
		Image:       rec.Image,
	}

	if schema == SchemaV2 {
		p.VATRate = rec.VATRate
		p.InventoryStatus = rec.InventoryStatus
	} else {
		p.InventoryStatus = product.DefaultInventoryStatus
	}

	return p, nil
}

func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}

	return strings.TrimSpace(s), true
}

// numberField accepts JSON numbers and numeric strings.
func numberField(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 {
		return decimal.Decimal{}, false
	}

	text := string(raw)

	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Decimal{}, false
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return decimal.Decimal{}, false
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
	default:
		// null, booleans, arrays, objects
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, false
	}

	if exp := d.Exponent(); exp > maxExponent || exp < minExponent {
		return decimal.Decimal{}, false
	}

	return d, true
}

// integerField accepts JSON numbers with an integral value; strings are rejected.
func integerField(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}

	d, ok := numberField(raw)
	if !ok || !d.IsInteger() || d.Abs().GreaterThan(maxID) {
		return 0, false
	}

	return d.IntPart(), true
}
