package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order; every statement is idempotent.
var schema = []struct {
	name string
	sql  string
}{
	{
		name: "users",
		sql: `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(30) NOT NULL UNIQUE,
			password_hash VARCHAR(128) NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
			last_login TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
			updated_by BIGINT REFERENCES users(id) ON DELETE SET NULL
		)`,
	},
	{
		name: "products",
		sql: `
		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			code VARCHAR(30) NOT NULL,
			name VARCHAR(50) NOT NULL,
			product_type VARCHAR(50) NOT NULL,
			availability BOOLEAN NOT NULL,
			needing_repair BOOLEAN NOT NULL,
			durability INTEGER NOT NULL DEFAULT 0 CHECK (durability >= 0),
			max_durability INTEGER NOT NULL CHECK (max_durability >= 0),
			mileage INTEGER CHECK (mileage >= 0),
			price INTEGER NOT NULL CHECK (price >= 0),
			minimum_rent_period SMALLINT NOT NULL CHECK (minimum_rent_period >= 0),
			created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
			updated_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "products_product_type_idx",
		sql:  `CREATE INDEX IF NOT EXISTS products_product_type_idx ON products (product_type)`,
	},
}

// EnsureSchema creates the tables the stores need.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range schema {
		if _, err := pool.Exec(ctx, s.sql); err != nil {
			return fmt.Errorf("apply schema %s: %w", s.name, err)
		}
	}
	return nil
}
