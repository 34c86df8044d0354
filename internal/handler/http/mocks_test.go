package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/internal/service"
	"github.com/utafrali/inkwell/pkg/httputil"
	"github.com/utafrali/inkwell/pkg/middleware"
	"github.com/utafrali/inkwell/pkg/pagination"
)

// ============================================================================
// Mock Services
// ============================================================================

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Signup(ctx context.Context, input service.SignupInput) (*domain.AuthResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthResult), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, input service.LoginInput) (*domain.AuthResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthResult), args.Error(1)
}

func (m *mockAuthService) Refresh(ctx context.Context, userID int64, refreshToken string) (*domain.RefreshResult, error) {
	args := m.Called(ctx, userID, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshResult), args.Error(1)
}

func (m *mockAuthService) Authenticate(ctx context.Context, accessToken string) (domain.Principal, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(domain.Principal), args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserService) List(ctx context.Context, params pagination.Params) ([]domain.User, int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserService) Update(ctx context.Context, p domain.Principal, id int64, fields domain.UserFields) (*domain.User, error) {
	args := m.Called(ctx, p, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserService) Remove(ctx context.Context, p domain.Principal, id int64) error {
	return m.Called(ctx, p, id).Error(0)
}

type mockBlogService struct {
	mock.Mock
}

func (m *mockBlogService) Create(ctx context.Context, p domain.Principal, name string) (*domain.Blog, error) {
	args := m.Called(ctx, p, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Blog), args.Error(1)
}

func (m *mockBlogService) Get(ctx context.Context, id int64) (*domain.Blog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Blog), args.Error(1)
}

func (m *mockBlogService) ListByUser(ctx context.Context, userID int64, params pagination.Params) ([]domain.Blog, int, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Blog), args.Int(1), args.Error(2)
}

func (m *mockBlogService) List(ctx context.Context, title string, params pagination.Params) ([]domain.Blog, int, error) {
	args := m.Called(ctx, title, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Blog), args.Int(1), args.Error(2)
}

func (m *mockBlogService) Update(ctx context.Context, p domain.Principal, id int64, name string) (*domain.Blog, error) {
	args := m.Called(ctx, p, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Blog), args.Error(1)
}

func (m *mockBlogService) Remove(ctx context.Context, p domain.Principal, id int64) error {
	return m.Called(ctx, p, id).Error(0)
}

// ============================================================================
// Helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	writer    = domain.Principal{ID: 7, Email: "w@example.com", Role: domain.RoleWriter}
	moderator = domain.Principal{ID: 9, Email: "m@example.com", Role: domain.RoleModerator}
)

// newRequest builds a request with an optional JSON body, chi URL params
// and an authenticated principal.
func newRequest(t *testing.T, method, target string, body any, p *domain.Principal, params map[string]string) *http.Request {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	if p != nil {
		ctx = middleware.WithClaims(ctx, middleware.Claims{UserID: p.ID, Email: p.Email, Role: string(p.Role)})
	}
	return req.WithContext(ctx)
}

// envelope decodes the standard response envelope with data into dst.
func envelope(t *testing.T, rec *httptest.ResponseRecorder, dst any) *httputil.ErrorResponse {
	t.Helper()
	var resp struct {
		Data  json.RawMessage         `json:"data"`
		Error *httputil.ErrorResponse `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	if dst != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, dst))
	}
	return resp.Error
}
