package http

import (
	"context"
	"net/http"

	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/internal/service"
	apperrors "github.com/utafrali/inkwell/pkg/errors"
	"github.com/utafrali/inkwell/pkg/middleware"
	"github.com/utafrali/inkwell/pkg/pagination"
)

// AuthService is the authentication surface the handlers need.
type AuthService interface {
	Signup(ctx context.Context, input service.SignupInput) (*domain.AuthResult, error)
	Login(ctx context.Context, input service.LoginInput) (*domain.AuthResult, error)
	Refresh(ctx context.Context, userID int64, refreshToken string) (*domain.RefreshResult, error)
	Authenticate(ctx context.Context, accessToken string) (domain.Principal, error)
}

// UserService is the user management surface the handlers need.
type UserService interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, params pagination.Params) ([]domain.User, int, error)
	Update(ctx context.Context, p domain.Principal, id int64, fields domain.UserFields) (*domain.User, error)
	Remove(ctx context.Context, p domain.Principal, id int64) error
}

// BlogService is the blog surface the handlers need.
type BlogService interface {
	Create(ctx context.Context, p domain.Principal, name string) (*domain.Blog, error)
	Get(ctx context.Context, id int64) (*domain.Blog, error)
	ListByUser(ctx context.Context, userID int64, params pagination.Params) ([]domain.Blog, int, error)
	List(ctx context.Context, title string, params pagination.Params) ([]domain.Blog, int, error)
	Update(ctx context.Context, p domain.Principal, id int64, name string) (*domain.Blog, error)
	Remove(ctx context.Context, p domain.Principal, id int64) error
}

// principal converts the claims stored by middleware.Auth. The second
// result is false on routes that skipped authentication.
func principal(r *http.Request) (domain.Principal, bool) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return domain.Principal{}, false
	}
	return domain.Principal{ID: c.UserID, Email: c.Email, Role: domain.Role(c.Role)}, true
}

var errNoPrincipal = apperrors.Unauthorized("authentication required")

// authenticator adapts AuthService.Authenticate to middleware.Auth.
func authenticator(svc AuthService) middleware.Authenticator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		p, err := svc.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: p.ID, Email: p.Email, Role: string(p.Role)}, nil
	}
}
