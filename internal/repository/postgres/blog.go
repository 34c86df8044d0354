package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/pkg/database"
	apperrors "github.com/utafrali/inkwell/pkg/errors"
	"github.com/utafrali/inkwell/pkg/pagination"
)

// BlogRepository implements repository.BlogRepository using PostgreSQL.
type BlogRepository struct {
	db database.DBTX
}

// NewBlogRepository creates a new PostgreSQL-backed blog repository.
func NewBlogRepository(db database.DBTX) *BlogRepository {
	return &BlogRepository{db: db}
}

// Create inserts a new blog and fills in the generated id and timestamps.
func (r *BlogRepository) Create(ctx context.Context, b *domain.Blog) (err error) {
	query := `
		INSERT INTO blogs (user_id, name, slug)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	ctx, end := database.TraceQuery(ctx, "blogs.Create", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, b.UserID, b.Name, b.Slug).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("blog", "slug", b.Slug)
		}
		return fmt.Errorf("insert blog: %w", err)
	}
	return nil
}

// GetByID retrieves a blog by id.
func (r *BlogRepository) GetByID(ctx context.Context, id int64) (_ *domain.Blog, err error) {
	query := `
		SELECT id, user_id, name, slug, created_at, updated_at
		FROM blogs
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "blogs.GetByID", query)
	defer func() { end(err) }()

	var b domain.Blog
	err = r.db.QueryRow(ctx, query, id).Scan(&b.ID, &b.UserID, &b.Name, &b.Slug, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan blog: %w", err)
	}
	return &b, nil
}

// ListByUser returns a page of the user's blogs, newest first.
func (r *BlogRepository) ListByUser(ctx context.Context, userID int64, params pagination.Params) (blogs []domain.Blog, total int, err error) {
	query := `
		SELECT id, user_id, name, slug, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM blogs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "blogs.ListByUser", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, userID, params.PerPage, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list blogs by user: %w", err)
	}
	return scanBlogPage(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns a page of all blogs, newest first, optionally filtered by a
// case-insensitive substring of the name.
func (r *BlogRepository) List(ctx context.Context, title string, params pagination.Params) (blogs []domain.Blog, total int, err error) {
	query := `
		SELECT id, user_id, name, slug, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM blogs
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "blogs.List", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, likeEscaper.Replace(title), params.PerPage, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list blogs: %w", err)
	}
	return scanBlogPage(rows)
}

func scanBlogPage(rows pgx.Rows) (blogs []domain.Blog, total int, err error) {
	defer rows.Close()

	blogs = make([]domain.Blog, 0)
	for rows.Next() {
		var b domain.Blog
		if err = rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Slug, &b.CreatedAt, &b.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan blog row: %w", err)
		}
		blogs = append(blogs, b)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate blog rows: %w", err)
	}

	return blogs, total, nil
}

// Update persists the blog's name and slug and refreshes UpdatedAt.
func (r *BlogRepository) Update(ctx context.Context, b *domain.Blog) (err error) {
	query := `
		UPDATE blogs
		SET name = $1, slug = $2, updated_at = now()
		WHERE id = $3
		RETURNING updated_at`

	ctx, end := database.TraceQuery(ctx, "blogs.Update", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, b.Name, b.Slug, b.ID).Scan(&b.UpdatedAt)
	if err != nil {
		switch {
		case database.IsNoRows(err):
			return apperrors.NotFound("blog", strconv.FormatInt(b.ID, 10))
		case database.IsUniqueViolation(err):
			return apperrors.AlreadyExists("blog", "slug", b.Slug)
		}
		return fmt.Errorf("update blog: %w", err)
	}
	return nil
}

// Delete removes a blog by id.
func (r *BlogRepository) Delete(ctx context.Context, id int64) (err error) {
	query := `DELETE FROM blogs WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "blogs.Delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("blog", strconv.FormatInt(id, 10))
	}
	return nil
}
