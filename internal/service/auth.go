package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/inkwell/internal/auth"
	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/internal/repository"
	apperrors "github.com/utafrali/inkwell/pkg/errors"
)

// AuthService drives signup, login and refresh-token rotation.
type AuthService struct {
	store    repository.CredentialStore
	hasher   auth.Hasher
	tokens   TokenIssuer
	events   EventPublisher
	attempts repository.LoginAttemptStore
	throttle LoginThrottle
	logger   *slog.Logger
}

// LoginThrottle bounds failed logins per email.
type LoginThrottle struct {
	MaxAttempts int
	Window      time.Duration
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithLoginThrottle enables per-email login throttling backed by store.
func WithLoginThrottle(store repository.LoginAttemptStore, t LoginThrottle) AuthOption {
	return func(s *AuthService) {
		s.attempts = store
		s.throttle = t
	}
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store repository.CredentialStore,
	hasher auth.Hasher,
	tokens TokenIssuer,
	events EventPublisher,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		events: events,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignupInput holds the parameters for registering a new user.
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a writer account, issues its first token pair and stores
// the hash of the refresh token.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	_, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		recordOutcome("signup", "duplicate")
		return nil, domain.DuplicateUserError()
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         domain.RoleWriter,
		PasswordHash: passwordHash,
	}
	if err := s.store.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			recordOutcome("signup", "duplicate")
			return nil, domain.DuplicateUserError()
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.issueAndStore(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	recordOutcome("signup", "success")
	s.logger.InfoContext(ctx, "user signed up",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &domain.AuthResult{User: user, Tokens: tokens}, nil
}

// Login checks the password and rotates the stored refresh-token hash. An
// unknown email and a wrong password produce the same client-facing error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	if s.throttled(ctx, email) {
		recordOutcome("login", "throttled")
		s.logger.WarnContext(ctx, "login throttled", slog.String("email", email))
		return nil, domain.InvalidCredentialsError()
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.recordFailure(ctx, email)
			recordOutcome("login", "unknown_email")
			s.logger.WarnContext(ctx, "login failed",
				slog.String("email", email),
				slog.String("reason", "user not found"),
			)
			return nil, domain.UserNotFoundError()
		}
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, input.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.recordFailure(ctx, email)
		recordOutcome("login", "wrong_password")
		s.logger.WarnContext(ctx, "login failed",
			slog.Int64("user_id", user.ID),
			slog.String("reason", "wrong password"),
		)
		return nil, domain.InvalidCredentialsError()
	}

	tokens, err := s.issueAndStore(ctx, user)
	if err != nil {
		return nil, err
	}
	s.resetFailures(ctx, email)

	recordOutcome("login", "success")
	s.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", user.ID))

	return &domain.AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. The token must carry a
// valid refresh signature for userID and match the stored hash; the stored
// hash is then swapped for the new token's, so each refresh token works
// once. Every rejection is ACCESS_DENIED.
func (s *AuthService) Refresh(ctx context.Context, userID int64, refreshToken string) (*domain.RefreshResult, error) {
	deny := func(reason string, attrs ...any) (*domain.RefreshResult, error) {
		recordOutcome("refresh", "denied")
		attrs = append(attrs, slog.Int64("user_id", userID), slog.String("reason", reason))
		s.logger.WarnContext(ctx, "refresh denied", attrs...)
		return nil, domain.AccessDeniedError()
	}

	claims, err := s.tokens.Verify(refreshToken, auth.ScopeRefresh)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return deny("refresh token expired")
		}
		return deny("refresh token invalid", slog.String("error", err.Error()))
	}
	if claims.UserID != userID {
		return deny("subject mismatch", slog.Int64("token_subject", claims.UserID))
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return deny("user not found")
		}
		return nil, fmt.Errorf("lookup user by id: %w", err)
	}
	if user.RefreshTokenHash == nil {
		return deny("no refresh token on record")
	}
	oldHash := *user.RefreshTokenHash

	ok, err := s.hasher.Verify(oldHash, refreshToken)
	if err != nil {
		return deny("stored refresh hash unusable", slog.String("error", err.Error()))
	}
	if !ok {
		return deny("refresh token does not match rotation record")
	}

	tokens, newHash, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	swapped, err := s.store.CompareAndSwapRefreshTokenHash(ctx, user.ID, oldHash, newHash)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		return deny("refresh token rotated concurrently")
	}

	recordOutcome("refresh", "success")
	s.logger.InfoContext(ctx, "tokens refreshed", slog.Int64("user_id", user.ID))

	return &domain.RefreshResult{UserID: user.ID, Tokens: tokens}, nil
}

// Authenticate verifies an access token and loads the caller's current
// principal. The role always comes from the store, never the token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (domain.Principal, error) {
	claims, err := s.tokens.Verify(accessToken, auth.ScopeAccess)
	if err != nil {
		s.logger.DebugContext(ctx, "access token rejected", slog.String("error", err.Error()))
		return domain.Principal{}, domain.TokenError(err)
	}

	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "access token for deleted user", slog.Int64("user_id", claims.UserID))
			return domain.Principal{}, domain.TokenError(domain.ErrTokenInvalid)
		}
		return domain.Principal{}, fmt.Errorf("load principal: %w", err)
	}

	return user.Principal(), nil
}

// issue signs a pair for user and hashes its refresh token.
func (s *AuthService) issue(user *domain.User) (domain.TokenPair, string, error) {
	tokens, err := s.tokens.IssueTokenPair(user.ID, user.Email)
	if err != nil {
		return domain.TokenPair{}, "", fmt.Errorf("issue tokens: %w", err)
	}
	hash, err := s.hasher.Hash(tokens.RefreshToken)
	if err != nil {
		return domain.TokenPair{}, "", fmt.Errorf("hash refresh token: %w", err)
	}
	return tokens, hash, nil
}

// issueAndStore issues a pair and unconditionally overwrites the stored
// refresh-token hash.
func (s *AuthService) issueAndStore(ctx context.Context, user *domain.User) (domain.TokenPair, error) {
	tokens, hash, err := s.issue(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := s.store.UpdateRefreshTokenHash(ctx, user.ID, hash); err != nil {
		return domain.TokenPair{}, fmt.Errorf("store refresh token hash: %w", err)
	}
	user.RefreshTokenHash = &hash
	return tokens, nil
}

func (s *AuthService) throttled(ctx context.Context, email string) bool {
	if s.attempts == nil {
		return false
	}
	n, err := s.attempts.Failures(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "login attempt store unavailable", slog.String("error", err.Error()))
		return false
	}
	return n >= s.throttle.MaxAttempts
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.attempts == nil {
		return
	}
	if _, err := s.attempts.RecordFailure(ctx, email, s.throttle.Window); err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure", slog.String("error", err.Error()))
	}
}

func (s *AuthService) resetFailures(ctx context.Context, email string) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Reset(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "failed to reset login failures", slog.String("error", err.Error()))
	}
}
