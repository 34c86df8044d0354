package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/inkwell/internal/auth"
	"github.com/utafrali/inkwell/internal/domain"
	apperrors "github.com/utafrali/inkwell/pkg/errors"
	"github.com/utafrali/inkwell/pkg/pagination"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// outcomeCount reads the current value of the auth outcome counter.
func outcomeCount(t *testing.T, operation, outcome string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, authOutcomes.WithLabelValues(operation, outcome).(prometheus.Metric).Write(&m))
	return m.GetCounter().GetValue()
}

// --- In-memory user store ---

type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]domain.User

	// err, when set, is returned by every method.
	err error
	// hashWrites counts refresh-token hash writes.
	hashWrites int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: make(map[int64]domain.User)}
}

func clone(u domain.User) *domain.User {
	if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		u.RefreshTokenHash = &h
	}
	return &u
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memUserStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return clone(u), nil
}

func (s *memUserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.byID {
		if existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	s.nextID++
	now := time.Now().UTC()
	u.ID, u.CreatedAt, u.UpdatedAt = s.nextID, now, now
	s.byID[u.ID] = *clone(*u)
	return nil
}

func (s *memUserStore) UpdateRefreshTokenHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	u, ok := s.byID[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.RefreshTokenHash = &hash
	s.byID[id] = u
	s.hashWrites++
	return nil
}

func (s *memUserStore) CompareAndSwapRefreshTokenHash(_ context.Context, id int64, old, new string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	u, ok := s.byID[id]
	if !ok || u.RefreshTokenHash == nil || *u.RefreshTokenHash != old {
		return false, nil
	}
	u.RefreshTokenHash = &new
	s.byID[id] = u
	s.hashWrites++
	return true, nil
}

func (s *memUserStore) List(_ context.Context, params pagination.Params) ([]domain.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, 0, s.err
	}
	all := make([]domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := min(params.Offset(), len(all))
	end := min(start+params.PerPage, len(all))
	return all[start:end], len(all), nil
}

func (s *memUserStore) UpdateFields(_ context.Context, id int64, f domain.UserFields) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if f.FirstName != nil {
		u.FirstName = *f.FirstName
	}
	if f.LastName != nil {
		u.LastName = *f.LastName
	}
	if f.Role != nil {
		u.Role = *f.Role
	}
	u.UpdatedAt = time.Now().UTC()
	s.byID[id] = u
	return clone(u), nil
}

func (s *memUserStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.byID[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// seed inserts a user with the given role directly.
func (s *memUserStore) seed(email string, role domain.Role) *domain.User {
	u := &domain.User{Email: email, Role: role, PasswordHash: "unused"}
	if err := s.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

// snapshot returns the write counter and a copy of every stored user.
func (s *memUserStore) snapshot() (int, map[int64]domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make(map[int64]domain.User, len(s.byID))
	for id, u := range s.byID {
		users[id] = *clone(u)
	}
	return s.hashWrites, users
}

func (s *memUserStore) storedHash(id int64) *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id].RefreshTokenHash
}

// --- In-memory login attempts ---

type memAttempts struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newMemAttempts() *memAttempts {
	return &memAttempts{counts: make(map[string]int)}
}

func (a *memAttempts) Failures(_ context.Context, key string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[key], a.err
}

func (a *memAttempts) RecordFailure(_ context.Context, key string, _ time.Duration) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	a.counts[key]++
	return a.counts[key], nil
}

func (a *memAttempts) Reset(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	delete(a.counts, key)
	return nil
}

// --- Mock event publisher ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockEvents) PublishUserUpdated(ctx context.Context, user *domain.User, actorID int64) error {
	return m.Called(ctx, user, actorID).Error(0)
}

func (m *mockEvents) PublishBlogDeleted(ctx context.Context, blog *domain.Blog, actorID int64) error {
	return m.Called(ctx, blog, actorID).Error(0)
}

// --- Real crypto with cheap parameters ---

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestHasher(t *testing.T) *auth.Argon2Hasher {
	t.Helper()
	h, err := auth.NewArgon2Hasher(auth.Argon2Params{Memory: 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16})
	require.NoError(t, err)
	return h
}

func newTestTokens(t *testing.T) (*auth.TokenManager, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	m, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  "access-secret-for-service-tests-000",
		RefreshSecret: "refresh-secret-for-service-tests-00",
		AccessTTL:     72 * time.Hour,
		RefreshTTL:    720 * time.Hour,
		Issuer:        "inkwell-test",
	}, auth.WithClock(clock.Now))
	require.NoError(t, err)
	return m, clock
}
