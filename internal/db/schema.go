package db

// Every statement here must be safe to run against an already provisioned
// database.
const (
	createProductsTable = `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		price NUMERIC(10, 2) NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		image TEXT NOT NULL
	)`

	createUsersTable = `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

	addProductsVATRate = `
	ALTER TABLE products
		ADD COLUMN IF NOT EXISTS vat_rate NUMERIC(6, 4) NOT NULL DEFAULT 0`

	addProductsInventoryStatus = `
	ALTER TABLE products
		ADD COLUMN IF NOT EXISTS inventory_status TEXT NOT NULL DEFAULT 'in_stock'`

	upsertProductV1 = `
	INSERT INTO products (id, name, price, category, description, image)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		price = EXCLUDED.price,
		category = EXCLUDED.category,
		description = EXCLUDED.description,
		image = EXCLUDED.image`

	upsertProductV2 = `
	INSERT INTO products (id, name, price, vat_rate, inventory_status, category, description, image)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		price = EXCLUDED.price,
		vat_rate = EXCLUDED.vat_rate,
		inventory_status = EXCLUDED.inventory_status,
		category = EXCLUDED.category,
		description = EXCLUDED.description,
		image = EXCLUDED.image`
)

// schemaStatements run in order; later entries upgrade tables created by
// earlier releases.
var schemaStatements = []struct {
	op  string
	sql string
}{
	{"provision.create_products", createProductsTable},
	{"provision.create_users", createUsersTable},
	{"provision.add_vat_rate", addProductsVATRate},
	{"provision.add_inventory_status", addProductsInventoryStatus},
}
