package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/internal/repository"
	apperrors "github.com/utafrali/inkwell/pkg/errors"
	"github.com/utafrali/inkwell/pkg/pagination"
)

// The auth flow only sees the credential subset; profile operations live on
// the wider user repository.
var (
	_ repository.CredentialStore = (*UserRepository)(nil)
	_ repository.UserRepository  = (*UserRepository)(nil)
	_ repository.BlogRepository  = (*BlogRepository)(nil)
)

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewUserRepository(mock), mock
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	hash := "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA"
	return &domain.User{
		ID:               7,
		Email:            "alice@example.com",
		FirstName:        "Alice",
		LastName:         "Smith",
		Role:             domain.RoleWriter,
		PasswordHash:     "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$cHc",
		RefreshTokenHash: &hash,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func userColumnNames() []string {
	return []string{
		"id", "email", "first_name", "last_name", "role",
		"password_hash", "refresh_token_hash", "created_at", "updated_at",
	}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows(userColumnNames()).AddRow(
		u.ID, u.Email, u.FirstName, u.LastName, u.Role,
		u.PasswordHash, u.RefreshTokenHash, u.CreatedAt, u.UpdatedAt,
	)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserRepository_Create_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	u := sampleUser()
	u.ID = 0
	u.RefreshTokenHash = nil
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.Email, u.FirstName, u.LastName, u.Role, u.PasswordHash, u.RefreshTokenHash).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(101), created, created))

	err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int64(101), u.ID)
	assert.Equal(t, created, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	u := sampleUser()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.Email, u.FirstName, u.LastName, u.Role, u.PasswordHash, u.RefreshTokenHash).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DBError(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	u := sampleUser()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.Email, u.FirstName, u.LastName, u.Role, u.PasswordHash, u.RefreshTokenHash).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert user")
	assert.False(t, errors.Is(err, apperrors.ErrAlreadyExists))
}

// ---------------------------------------------------------------------------
// Find
// ---------------------------------------------------------------------------

func TestUserRepository_FindByID_Found(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	u := sampleUser()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.FindByID(context.Background(), 404)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_FindByEmail_Found(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	u := sampleUser()
	mock.ExpectQuery("SELECT .+ FROM users WHERE email =").
		WithArgs(u.Email).
		WillReturnRows(userRow(u))

	got, err := repo.FindByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	require.NotNil(t, got.RefreshTokenHash)
	assert.Equal(t, *u.RefreshTokenHash, *got.RefreshTokenHash)
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email =").
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_FindByEmail_DBError(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email =").
		WithArgs("a@example.com").
		WillReturnError(errors.New("timeout"))

	_, err := repo.FindByEmail(context.Background(), "a@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "scan user")
}

// ---------------------------------------------------------------------------
// Refresh token hash
// ---------------------------------------------------------------------------

func TestUserRepository_UpdateRefreshTokenHash(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectExec("UPDATE users SET refresh_token_hash").
		WithArgs("new-hash", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateRefreshTokenHash(context.Background(), 7, "new-hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateRefreshTokenHash_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectExec("UPDATE users SET refresh_token_hash").
		WithArgs("new-hash", int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateRefreshTokenHash(context.Background(), 9, "new-hash")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_CompareAndSwapRefreshTokenHash(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"swapped", 1, true},
		{"stale", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newUserTestFixture(t)

			mock.ExpectExec("UPDATE users .+ WHERE id = \\$2 AND refresh_token_hash = \\$3").
				WithArgs("new", int64(7), "old").
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			got, err := repo.CompareAndSwapRefreshTokenHash(context.Background(), 7, "old", "new")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CompareAndSwapRefreshTokenHash_DBError(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectExec("UPDATE users").
		WithArgs("new", int64(7), "old").
		WillReturnError(errors.New("deadlock"))

	got, err := repo.CompareAndSwapRefreshTokenHash(context.Background(), 7, "old", "new")
	assert.False(t, got)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// List / UpdateFields / Delete
// ---------------------------------------------------------------------------

func TestUserRepository_List(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	a, b := sampleUser(), sampleUser()
	b.ID, b.Email = 8, "bob@example.com"

	cols := append(userColumnNames(), "total_count")
	rows := pgxmock.NewRows(cols).
		AddRow(a.ID, a.Email, a.FirstName, a.LastName, a.Role, a.PasswordHash, a.RefreshTokenHash, a.CreatedAt, a.UpdatedAt, 12).
		AddRow(b.ID, b.Email, b.FirstName, b.LastName, b.Role, b.PasswordHash, b.RefreshTokenHash, b.CreatedAt, b.UpdatedAt, 12)

	mock.ExpectQuery("SELECT .+ FROM users ORDER BY id LIMIT").
		WithArgs(2, 2).
		WillReturnRows(rows)

	users, total, err := repo.List(context.Background(), pagination.Params{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, users, 2)
	assert.Equal(t, "bob@example.com", users[1].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List_Empty(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(append(userColumnNames(), "total_count")))

	users, total, err := repo.List(context.Background(), pagination.Params{Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUserRepository_UpdateFields(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	u := sampleUser()
	first := "Alicia"
	u.FirstName = first
	role := string(domain.RoleModerator)
	u.Role = domain.RoleModerator
	mod := domain.RoleModerator

	mock.ExpectQuery("UPDATE users .+ RETURNING").
		WithArgs(&first, (*string)(nil), &role, u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.UpdateFields(context.Background(), u.ID, domain.UserFields{FirstName: &first, Role: &mod})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.FirstName)
	assert.Equal(t, domain.RoleModerator, got.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFields_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	last := "Jones"
	mock.ExpectQuery("UPDATE users").
		WithArgs((*string)(nil), &last, (*string)(nil), int64(55)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.UpdateFields(context.Background(), 55, domain.UserFields{LastName: &last})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_Delete(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectExec("DELETE FROM users WHERE id =").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(context.Background(), 7))

	mock.ExpectExec("DELETE FROM users WHERE id =").
		WithArgs(int64(8)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 8), apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
