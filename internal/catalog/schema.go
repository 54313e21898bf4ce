package catalog

import (
	"fmt"
	"strings"
)

// Schema selects which product fields a manifest must carry.
type Schema int

const (
	// SchemaV1 covers id, name, price, category, description and image.
	SchemaV1 Schema = iota + 1
	// SchemaV2 adds vatRate and inventoryStatus.
	SchemaV2
)

func (s Schema) String() string {
	switch s {
	case SchemaV1:
		return "v1"
	case SchemaV2:
		return "v2"
	default:
		return fmt.Sprintf("schema(%d)", int(s))
	}
}

func ParseSchema(raw string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "v1", "1":
		return SchemaV1, nil
	case "v2", "2", "":
		return SchemaV2, nil
	default:
		return 0, fmt.Errorf("unknown manifest schema %q", raw)
	}
}
