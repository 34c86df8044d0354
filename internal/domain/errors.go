package domain

import (
	"errors"
	"net/http"

	apperrors "github.com/utafrali/inkwell/pkg/errors"
)

// Sentinels for every failure the credential and authorization flows can
// produce. Callers match them with errors.Is; the AppError constructors
// below attach the transport representation.
var (
	ErrDuplicateUser      = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccessDenied       = errors.New("access denied")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrBlogNotFound       = errors.New("blog not found")
)

// Login failures share one message so responses do not reveal which
// emails are registered.
const (
	msgBadLogin     = "invalid email or password"
	msgBadToken     = "invalid or expired token"
	msgAccessDenied = "access denied"
)

// DuplicateUserError is a 409 for a signup on a registered email.
func DuplicateUserError() *apperrors.AppError {
	return apperrors.New("DUPLICATE_USER", "a user with this email already exists", http.StatusConflict, ErrDuplicateUser)
}

// UserNotFoundError is the login failure for an unknown email.
func UserNotFoundError() *apperrors.AppError {
	return apperrors.New("UNAUTHORIZED", msgBadLogin, http.StatusUnauthorized, ErrUserNotFound)
}

// InvalidCredentialsError is the login failure for a wrong password.
func InvalidCredentialsError() *apperrors.AppError {
	return apperrors.New("UNAUTHORIZED", msgBadLogin, http.StatusUnauthorized, ErrInvalidCredentials)
}

// AccessDeniedError is every refresh failure.
func AccessDeniedError() *apperrors.AppError {
	return apperrors.New("ACCESS_DENIED", msgAccessDenied, http.StatusForbidden, ErrAccessDenied)
}

// TokenError maps a verification failure to its 401, keeping expired and
// invalid distinguishable through errors.Is.
func TokenError(err error) *apperrors.AppError {
	if errors.Is(err, ErrTokenExpired) {
		return apperrors.New("UNAUTHORIZED", msgBadToken, http.StatusUnauthorized, ErrTokenExpired)
	}
	return apperrors.New("UNAUTHORIZED", msgBadToken, http.StatusUnauthorized, ErrTokenInvalid)
}

// NotAuthorizedError is a 403 for a mutation by someone who is neither the
// owner nor elevated.
func NotAuthorizedError() *apperrors.AppError {
	return apperrors.New("NOT_AUTHORIZED", "you are not allowed to modify this resource", http.StatusForbidden, ErrNotAuthorized)
}

// BlogNotFoundError is a 404 for an unknown blog id.
func BlogNotFoundError() *apperrors.AppError {
	return apperrors.New("NOT_FOUND", "blog not found", http.StatusNotFound, ErrBlogNotFound)
}
