package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse_RoundsPriceHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		price string
		want  float64
	}{
		{`"9.999"`, 10.00},
		{`9.995`, 10.00},
		{`"9.995"`, 10.00},
		{`9.994`, 9.99},
		{`9.985`, 9.99},
		{`12`, 12},
		{`" 4.5 "`, 4.50},
		{`0.005`, 0.01},
		{`0.004`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			doc := `{"products":[{"id":1,"name":"A","price":` + tt.price + `,"category":"c","description":"d","image":"i"}]}`

			products, rejected, err := Parse([]byte(doc), SchemaV1)
			require.NoError(t, err)
			require.Empty(t, rejected)
			require.Len(t, products, 1)
			require.Equal(t, tt.want, products[0].Price)
		})
	}
}

func TestParse_RoundsVATToFourPlaces(t *testing.T) {
	doc := `{"products":[
		{"id":1,"name":"A","price":1,"category":"c","description":"d","image":"i","vatRate":0.12345,"inventoryStatus":"in_stock"},
		{"id":2,"name":"B","price":1,"category":"c","description":"d","image":"i","vatRate":"0.2","inventoryStatus":"low"},
		{"id":3,"name":"C","price":1,"category":"c","description":"d","image":"i","vatRate":0.00004,"inventoryStatus":"out"}
	]}`

	products, rejected, err := Parse([]byte(doc), SchemaV2)
	require.NoError(t, err)
	require.Empty(t, rejected)
	require.Len(t, products, 3)

	require.Equal(t, 0.1235, products[0].VATRate)
	require.Equal(t, 0.2, products[1].VATRate)
	require.Equal(t, "low", products[1].InventoryStatus)
	require.Equal(t, float64(0), products[2].VATRate)
}

func TestParse_TrimsStrings(t *testing.T) {
	doc := `{"products":[{"id":7,"name":"  Lamp ","price":"19.5","category":" home","description":"warm light ","image":" /img/lamp.png "}]}`

	products, _, err := Parse([]byte(doc), SchemaV1)
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	require.Equal(t, int64(7), p.ID)
	require.Equal(t, "Lamp", p.Name)
	require.Equal(t, "home", p.Category)
	require.Equal(t, "warm light", p.Description)
	require.Equal(t, "/img/lamp.png", p.Image)
	require.Equal(t, 19.5, p.Price)
}

func TestParse_DropsInvalidRecords(t *testing.T) {
	valid := map[string]any{
		"id": 1, "name": "A", "price": 1, "category": "c", "description": "d", "image": "i",
	}

	with := func(key string, value any) map[string]any {
		m := make(map[string]any, len(valid))
		for k, v := range valid {
			m[k] = v
		}
		if value == nil {
			delete(m, key)
		} else {
			m[key] = value
		}
		return m
	}

	tests := []struct {
		name   string
		record any
		field  string
	}{
		{"empty_name", with("name", ""), "name"},
		{"blank_name", with("name", "   "), "name"},
		{"missing_name", with("name", nil), "name"},
		{"numeric_name", with("name", 5), "name"},
		{"missing_image", with("image", nil), "image"},
		{"empty_category", with("category", ""), "category"},
		{"empty_description", with("description", " "), "description"},
		{"zero_id", with("id", 0), "id"},
		{"negative_id", with("id", -4), "id"},
		{"fractional_id", with("id", 1.5), "id"},
		{"string_id", with("id", "1"), "id"},
		{"missing_id", with("id", nil), "id"},
		{"bool_price", with("price", true), "price"},
		{"empty_price", with("price", ""), "price"},
		{"text_price", with("price", "cheap"), "price"},
		{"huge_price", with("price", "1e400"), "price"},
		{"negative_price", with("price", -1), "price"},
		{"price_overflows_column", with("price", 123456789), "price"},
		{"price_rounds_past_column", with("price", "99999999.995"), "price"},
		{"price_huge_exponent", with("price", "1e1000000000"), "price"},
		{"price_tiny_exponent", with("price", "1e-1000000000"), "price"},
		{"missing_price", with("price", nil), "price"},
		{"not_an_object", "product", "*"},
		{"array_entry", []int{1, 2}, "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(map[string]any{"products": []any{tt.record, valid}})
			require.NoError(t, err)

			products, rejected, err := Parse(b, SchemaV1)
			require.NoError(t, err)
			require.Len(t, products, 1, "only the valid record survives")
			require.Len(t, rejected, 1)
			require.Equal(t, 0, rejected[0].Index)
			require.Equal(t, tt.field, rejected[0].Field)
		})
	}
}

func TestParse_ColumnRangeBounds(t *testing.T) {
	tests := []struct {
		name     string
		price    any
		vat      any
		rejected string
	}{
		{"largest_price", "99999999.99", 0.2, ""},
		{"largest_vat", 1, "99.9999", ""},
		{"vat_hundred", 1, 100, "vatRate"},
		{"vat_rounds_to_hundred", 1, "99.99995", "vatRate"},
		{"vat_huge_exponent", 1, "5e400", "vatRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(map[string]any{"products": []any{map[string]any{
				"id": 1, "name": "A", "price": tt.price, "vatRate": tt.vat, "inventoryStatus": "in_stock",
				"category": "c", "description": "d", "image": "i",
			}}})
			require.NoError(t, err)

			products, rejected, err := Parse(b, SchemaV2)
			require.NoError(t, err)

			if tt.rejected == "" {
				require.Len(t, products, 1)
				require.Empty(t, rejected)
				return
			}

			require.Empty(t, products)
			require.Len(t, rejected, 1)
			require.Equal(t, tt.rejected, rejected[0].Field)
		})
	}
}

func TestParse_IntegralFloatIDIsAccepted(t *testing.T) {
	doc := `{"products":[{"id":2.0,"name":"A","price":1,"category":"c","description":"d","image":"i"}]}`

	products, _, err := Parse([]byte(doc), SchemaV1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, int64(2), products[0].ID)
}

func TestParse_SchemaV2RequiresExtendedFields(t *testing.T) {
	doc := `{"products":[
		{"id":1,"name":"A","price":1,"category":"c","description":"d","image":"i"},
		{"id":2,"name":"B","price":1,"category":"c","description":"d","image":"i","vatRate":-0.1,"inventoryStatus":"ok"},
		{"id":3,"name":"C","price":1,"category":"c","description":"d","image":"i","vatRate":0.1,"inventoryStatus":"  "},
		{"id":4,"name":"D","price":1,"category":"c","description":"d","image":"i","vatRate":null,"inventoryStatus":"ok"},
		{"id":5,"name":"E","price":1,"category":"c","description":"d","image":"i","vatRate":0.07,"inventoryStatus":"ok"}
	]}`

	products, rejected, err := Parse([]byte(doc), SchemaV2)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, int64(5), products[0].ID)

	fields := make([]string, 0, len(rejected))
	for _, r := range rejected {
		fields = append(fields, r.Field)
	}
	require.Equal(t, []string{"vatRate", "vatRate", "inventoryStatus", "vatRate"}, fields)
}

func TestParse_SchemaV1IgnoresExtendedFields(t *testing.T) {
	doc := `{"products":[{"id":1,"name":"A","price":1,"category":"c","description":"d","image":"i","vatRate":"bogus"}]}`

	products, rejected, err := Parse([]byte(doc), SchemaV1)
	require.NoError(t, err)
	require.Empty(t, rejected)
	require.Len(t, products, 1)
	require.Equal(t, float64(0), products[0].VATRate)
	require.Equal(t, "in_stock", products[0].InventoryStatus)
}

func TestParse_Shape(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty_list", `{"products":[]}`},
		{"top_level_array", `[{"id":1}]`},
		{"top_level_string", `"products"`},
		{"products_object", `{"products":{"id":1}}`},
		{"products_null", `{"products":null}`},
		{"missing_products", `{"items":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, rejected, err := Parse([]byte(tt.doc), SchemaV2)
			require.NoError(t, err)
			require.Empty(t, products)
			require.NotNil(t, products)
			require.Empty(t, rejected)
		})
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, _, err := Parse([]byte(`{"products":[`), SchemaV1)
	require.ErrorIs(t, err, ErrInvalidJSON)
}

func TestLoader_ReReadsOnEveryCall(t *testing.T) {
	fsys := fstest.MapFS{
		"db.json": &fstest.MapFile{Data: []byte(`{"products":[{"id":1,"name":"A","price":1,"category":"c","description":"d","image":"i"}]}`)},
	}

	l := NewLoader(fsys, "db.json", SchemaV1, quietLogger())

	first, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	fsys["db.json"] = &fstest.MapFile{Data: []byte(`{"products":[]}`)}

	second, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, second)
}

func TestLoader_Errors(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.json": &fstest.MapFile{Data: []byte(`not json`)},
	}

	_, err := NewLoader(fsys, "missing.json", SchemaV1, quietLogger()).Load(context.Background())
	require.Error(t, err)

	_, err = NewLoader(fsys, "broken.json", SchemaV1, quietLogger()).Load(context.Background())
	require.ErrorIs(t, err, ErrInvalidJSON)
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema("V1")
	require.NoError(t, err)
	require.Equal(t, SchemaV1, s)

	s, err = ParseSchema("")
	require.NoError(t, err)
	require.Equal(t, SchemaV2, s)

	_, err = ParseSchema("v3")
	require.Error(t, err)
}
