package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/rentdesk/internal/domain/product"
	"github.com/geocoder89/rentdesk/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, code, name, product_type, availability, needing_repair, durability,
	max_durability, mileage, price, minimum_rent_period, created_by, updated_by, created_at, updated_at`

type ProductsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// constructor function

func NewProductsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{
		pool: pool,
		prom: prom,
	}
}

func productDest(p *product.Product) []interface{} {
	return []interface{}{
		&p.ID,
		&p.Code,
		&p.Name,
		&p.ProductType,
		&p.Availability,
		&p.NeedingRepair,
		&p.Durability,
		&p.MaxDurability,
		&p.Mileage,
		&p.Price,
		&p.MinimumRentPeriod,
		&p.CreatedBy,
		&p.UpdatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}

func (r *ProductsRepo) Create(ctx context.Context, in product.Product, actor *int64) (product.Product, error) {
	var p product.Product

	err := r.prom.ObserveDB("products.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO products (code, name, product_type, availability, needing_repair, durability,
				max_durability, mileage, price, minimum_rent_period, created_by, updated_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
			RETURNING `+productColumns,
			in.Code, in.Name, in.ProductType, in.Availability, in.NeedingRepair, in.Durability,
			in.MaxDurability, in.Mileage, in.Price, in.MinimumRentPeriod, actor,
		).Scan(productDest(&p)...)
	})

	if err != nil {
		return product.Product{}, err
	}

	return p, nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id int64) (product.Product, error) {
	var p product.Product

	err := r.prom.ObserveDB("products.get_by_id", func() error {
		return r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id).Scan(productDest(&p)...)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}

	return p, nil
}

func (r *ProductsRepo) List(ctx context.Context, filter product.ListFilter) ([]product.Product, int, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	// filtered conditional checks.
	if filter.Search != nil {
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+escapeLike(*filter.Search)+"%")
		argsPosition++
	}

	if filter.ProductType != nil {
		conds = append(conds, fmt.Sprintf("product_type = $%d", argsPosition))
		args = append(args, *filter.ProductType)
		argsPosition++
	}

	if filter.Availability != nil {
		conds = append(conds, fmt.Sprintf("availability = $%d", argsPosition))
		args = append(args, *filter.Availability)
		argsPosition++
	}

	if filter.NeedingRepair != nil {
		conds = append(conds, fmt.Sprintf("needing_repair = $%d", argsPosition))
		args = append(args, *filter.NeedingRepair)
		argsPosition++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	err := r.prom.ObserveDB("products.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where +
		fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
	args = append(args, filter.Limit, filter.Offset)

	output := make([]product.Product, 0, filter.Limit)

	err = r.prom.ObserveDB("products.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p product.Product
			if err := rows.Scan(productDest(&p)...); err != nil {
				return err
			}
			output = append(output, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

func (r *ProductsRepo) Update(ctx context.Context, in product.Product, actor *int64) (product.Product, error) {
	var p product.Product

	err := r.prom.ObserveDB("products.update", func() error {
		return r.pool.QueryRow(
			ctx,
			`UPDATE products
				SET code = $2,
						name = $3,
						product_type = $4,
						availability = $5,
						needing_repair = $6,
						durability = $7,
						max_durability = $8,
						mileage = $9,
						price = $10,
						minimum_rent_period = $11,
						updated_by = $12,
						updated_at = NOW()
			WHERE id = $1
			RETURNING `+productColumns,
			in.ID, in.Code, in.Name, in.ProductType, in.Availability, in.NeedingRepair, in.Durability,
			in.MaxDurability, in.Mileage, in.Price, in.MinimumRentPeriod, actor,
		).Scan(productDest(&p)...)
	})

	if err != nil {
		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}

	return p, nil
}

func (r *ProductsRepo) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := r.prom.ObserveDB("products.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return product.ErrNotFound
	}

	return nil
}
