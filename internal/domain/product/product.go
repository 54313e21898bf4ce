package product

import "errors"

type Product struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	VATRate         float64 `json:"vatRate"`
	InventoryStatus string  `json:"inventoryStatus"`
	Category        string  `json:"category"`
	Description     string  `json:"description"`
	Image           string  `json:"image"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Category *string
}

var ErrNotFound = errors.New("product not found")

// DefaultInventoryStatus is used for rows seeded before the column existed.
const DefaultInventoryStatus = "in_stock"
