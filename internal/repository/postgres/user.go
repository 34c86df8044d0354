package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/pkg/database"
	apperrors "github.com/utafrali/inkwell/pkg/errors"
	"github.com/utafrali/inkwell/pkg/pagination"
)

const userColumns = `id, email, first_name, last_name, role, password_hash, refresh_token_hash, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and fills in the generated id and timestamps.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (email, first_name, last_name, role, password_hash, refresh_token_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	ctx, end := database.TraceQuery(ctx, "users.Create", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query,
		u.Email,
		u.FirstName,
		u.LastName,
		u.Role,
		u.PasswordHash,
		u.RefreshTokenHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, "users.FindByID", query, id)
}

// FindByEmail retrieves a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(ctx, "users.FindByEmail", query, email)
}

// UpdateRefreshTokenHash overwrites the stored refresh-token hash.
func (r *UserRepository) UpdateRefreshTokenHash(ctx context.Context, id int64, hash string) (err error) {
	query := `UPDATE users SET refresh_token_hash = $1, updated_at = now() WHERE id = $2`

	ctx, end := database.TraceQuery(ctx, "users.UpdateRefreshTokenHash", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("update refresh token hash: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// CompareAndSwapRefreshTokenHash swaps the stored hash only when it still
// equals old, so two refreshes racing on the same token cannot both win.
func (r *UserRepository) CompareAndSwapRefreshTokenHash(ctx context.Context, id int64, old, new string) (swapped bool, err error) {
	query := `
		UPDATE users
		SET refresh_token_hash = $1, updated_at = now()
		WHERE id = $2 AND refresh_token_hash = $3`

	ctx, end := database.TraceQuery(ctx, "users.CompareAndSwapRefreshTokenHash", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, new, id, old)
	if err != nil {
		return false, fmt.Errorf("swap refresh token hash: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// List returns a page of users ordered by id and the total count.
func (r *UserRepository) List(ctx context.Context, params pagination.Params) (users []domain.User, total int, err error) {
	query := `
		SELECT ` + userColumns + `,
		       count(*) OVER() AS total_count
		FROM users
		ORDER BY id
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, "users.List", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, params.PerPage, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users = make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err = rows.Scan(
			&u.ID,
			&u.Email,
			&u.FirstName,
			&u.LastName,
			&u.Role,
			&u.PasswordHash,
			&u.RefreshTokenHash,
			&u.CreatedAt,
			&u.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, total, nil
}

// UpdateFields applies the non-nil profile fields and returns the row as
// stored afterwards. Credential columns are never touched.
func (r *UserRepository) UpdateFields(ctx context.Context, id int64, f domain.UserFields) (*domain.User, error) {
	var role *string
	if f.Role != nil {
		s := string(*f.Role)
		role = &s
	}

	query := `
		UPDATE users
		SET first_name = COALESCE($1, first_name),
		    last_name = COALESCE($2, last_name),
		    role = COALESCE($3, role),
		    updated_at = now()
		WHERE id = $4
		RETURNING ` + userColumns

	return r.scanUser(ctx, "users.UpdateFields", query, f.FirstName, f.LastName, role, id)
}

// Delete removes a user by id.
func (r *UserRepository) Delete(ctx context.Context, id int64) (err error) {
	query := `DELETE FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "users.Delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// scanUser executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, op, query string, args ...any) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var u domain.User
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.PasswordHash,
		&u.RefreshTokenHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
