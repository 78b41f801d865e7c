package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/rentdesk/internal/domain/user"
	"github.com/geocoder89/rentdesk/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, is_active, is_staff, is_superuser, last_login,
	created_at, updated_at, created_by, updated_by`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.IsActive,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.CreatedBy,
		&u.UpdatedBy,
	)

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser, actor *int64) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.create", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, is_active, is_staff, is_superuser, created_by, updated_by)
			VALUES ($1,$2,$3,$4,$5,$6,$6)
			RETURNING `+userColumns,
			nu.Email, nu.PasswordHash, nu.IsActive, nu.IsStaff, nu.IsSuperuser, actor,
		))
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) List(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.Search != nil {
		conds = append(conds, fmt.Sprintf("email ILIKE $%d", argsPosition))
		args = append(args, "%"+escapeLike(*filter.Search)+"%")
		argsPosition++
	}

	if filter.IsActive != nil {
		conds = append(conds, fmt.Sprintf("is_active = $%d", argsPosition))
		args = append(args, *filter.IsActive)
		argsPosition++
	}

	if filter.IsStaff != nil {
		conds = append(conds, fmt.Sprintf("is_staff = $%d", argsPosition))
		args = append(args, *filter.IsStaff)
		argsPosition++
	}

	query := `SELECT ` + userColumns + `, COUNT(*) OVER() AS total FROM users`

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
	args = append(args, filter.Limit, filter.Offset)

	output := make([]user.User, 0, filter.Limit)
	total := 0

	err := r.prom.ObserveDB("users.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u user.User
			var t int

			err = rows.Scan(
				&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.LastLogin,
				&u.CreatedAt, &u.UpdatedAt, &u.CreatedBy, &u.UpdatedBy, &t,
			)
			if err != nil {
				return err
			}

			total = t
			output = append(output, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	// an offset past the end returns no rows and therefore no window total
	if len(output) == 0 && filter.Offset > 0 {
		total, err = r.count(ctx, conds, args[:len(args)-2])
		if err != nil {
			return nil, 0, err
		}
	}

	return output, total, nil
}

func (r *UsersRepo) count(ctx context.Context, conds []string, args []interface{}) (int, error) {
	query := `SELECT COUNT(*) FROM users`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var n int
	err := r.prom.ObserveDB("users.count", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(&n)
	})
	return n, err
}

func (r *UsersRepo) Update(ctx context.Context, in user.User, actor *int64) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
				SET email = $2,
						is_active = $3,
						is_staff = $4,
						is_superuser = $5,
						updated_by = $6,
						updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			in.ID, in.Email, in.IsActive, in.IsStaff, in.IsSuperuser, actor,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

// UpdateProfile changes email and/or password hash in one statement; nil
// leaves the column as is.
func (r *UsersRepo) UpdateProfile(ctx context.Context, id int64, email, hash *string, actor *int64) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.update_profile", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
				SET email = COALESCE($2, email),
						password_hash = COALESCE($3, password_hash),
						updated_by = $4,
						updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, email, hash, actor,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) SetPassword(ctx context.Context, id int64, hash string, actor *int64) error {
	return r.execOne(ctx, "users.set_password",
		`UPDATE users SET password_hash = $2, updated_by = $3, updated_at = NOW() WHERE id = $1`,
		id, hash, actor,
	)
}

func (r *UsersRepo) RecordLogin(ctx context.Context, id int64) error {
	return r.execOne(ctx, "users.record_login",
		`UPDATE users SET is_active = TRUE, last_login = NOW() WHERE id = $1`,
		id,
	)
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, "users.delete", `DELETE FROM users WHERE id = $1`, id)
}

// execOne runs a statement that must touch exactly one user row.
func (r *UsersRepo) execOne(ctx context.Context, op, sql string, args ...interface{}) error {
	var affected int64

	err := r.prom.ObserveDB(op, func() error {
		tag, err := r.pool.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return user.ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
