package repository

import (
	"context"
	"time"

	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/pkg/pagination"
)

// CredentialStore is the persistence contract of the authentication flow.
// Lookups return apperrors.ErrNotFound when no user matches.
type CredentialStore interface {
	// FindByEmail retrieves a user by email address.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByID retrieves a user by id.
	FindByID(ctx context.Context, id int64) (*domain.User, error)

	// Create inserts a user and fills in its ID and timestamps. A taken
	// email yields an error wrapping apperrors.ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// UpdateRefreshTokenHash overwrites the stored refresh-token hash and
	// touches no other credential field.
	UpdateRefreshTokenHash(ctx context.Context, id int64, hash string) error

	// CompareAndSwapRefreshTokenHash replaces the stored hash only if it
	// still equals old. It reports whether the swap happened.
	CompareAndSwapRefreshTokenHash(ctx context.Context, id int64, old, new string) (bool, error)
}

// UserRepository is the full user store: credentials plus profile
// management.
type UserRepository interface {
	CredentialStore

	// List returns a page of users ordered by id and the total count.
	List(ctx context.Context, params pagination.Params) ([]domain.User, int, error)

	// UpdateFields applies the non-nil fields and returns the updated user.
	UpdateFields(ctx context.Context, id int64, fields domain.UserFields) (*domain.User, error)

	// Delete removes a user and, through the foreign key, their blogs.
	Delete(ctx context.Context, id int64) error
}

// BlogRepository defines blog persistence operations.
type BlogRepository interface {
	// Create inserts a blog and fills in its ID and timestamps. A slug
	// already used by the same owner yields apperrors.ErrAlreadyExists.
	Create(ctx context.Context, blog *domain.Blog) error

	// GetByID retrieves a blog by id.
	GetByID(ctx context.Context, id int64) (*domain.Blog, error)

	// ListByUser returns a page of the user's blogs, newest first.
	ListByUser(ctx context.Context, userID int64, params pagination.Params) ([]domain.Blog, int, error)

	// List returns a page of all blogs, newest first. A non-empty title
	// keeps only blogs whose name contains it, ignoring case.
	List(ctx context.Context, title string, params pagination.Params) ([]domain.Blog, int, error)

	// Update persists the blog's name and slug.
	Update(ctx context.Context, blog *domain.Blog) error

	// Delete removes a blog by id.
	Delete(ctx context.Context, id int64) error
}

// LoginAttemptStore counts failed logins per key inside a sliding window.
type LoginAttemptStore interface {
	// Failures returns the current failure count for key.
	Failures(ctx context.Context, key string) (int, error)

	// RecordFailure increments the count for key, starting a new window
	// of the given length if none is open, and returns the new count.
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)

	// Reset clears the count for key.
	Reset(ctx context.Context, key string) error
}
