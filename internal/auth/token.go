package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/inkwell/internal/domain"
)

// Scope selects which secret and lifetime a token is bound to.
type Scope int

const (
	ScopeAccess Scope = iota
	ScopeRefresh
)

func (s Scope) String() string {
	switch s {
	case ScopeAccess:
		return "access"
	case ScopeRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenConfig carries the signing secrets and lifetimes.
type TokenConfig struct {
	AccessSecret  string        `env:"ACCESS_SECRET,required,notEmpty"`
	RefreshSecret string        `env:"REFRESH_SECRET,required,notEmpty"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"72h"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"720h"`
	Issuer        string        `env:"TOKEN_ISSUER" envDefault:"inkwell"`
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

// TokenManager signs and verifies HS256 tokens. Access and refresh tokens
// use independent secrets, so a token from one scope never verifies in the
// other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenManager validates cfg and returns a manager. Missing or shared
// secrets and non-positive lifetimes are configuration errors.
func NewTokenManager(cfg TokenConfig, opts ...TokenOption) (*TokenManager, error) {
	switch {
	case cfg.AccessSecret == "" || cfg.RefreshSecret == "":
		return nil, errors.New("token secrets must not be empty")
	case cfg.AccessSecret == cfg.RefreshSecret:
		return nil, errors.New("access and refresh secrets must differ")
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, errors.New("token lifetimes must be positive")
	}

	m := &TokenManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// IssueTokenPair signs an access and a refresh token for the subject. The
// two signatures are produced concurrently.
func (m *TokenManager) IssueTokenPair(subjectID int64, email string) (domain.TokenPair, error) {
	var pair domain.TokenPair
	now := m.now()

	var g errgroup.Group
	g.Go(func() error {
		tok, err := m.sign(ScopeAccess, subjectID, email, now)
		if err != nil {
			return fmt.Errorf("sign access token: %w", err)
		}
		pair.AccessToken = tok
		return nil
	})
	g.Go(func() error {
		tok, err := m.sign(ScopeRefresh, subjectID, email, now)
		if err != nil {
			return fmt.Errorf("sign refresh token: %w", err)
		}
		pair.RefreshToken = tok
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

func (m *TokenManager) sign(scope Scope, subjectID int64, email string, now time.Time) (string, error) {
	secret, ttl := m.secretFor(scope)
	claims := &Claims{
		UserID: subjectID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(subjectID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify checks the token's signature against the scope's secret and its
// expiry against the clock. Failures wrap domain.ErrTokenExpired or
// domain.ErrTokenInvalid.
func (m *TokenManager) Verify(token string, scope Scope) (*Claims, error) {
	secret, _ := m.secretFor(scope)

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.validationTime),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %s token: %w", domain.ErrTokenExpired, scope, err)
		}
		return nil, fmt.Errorf("%w: %s token: %w", domain.ErrTokenInvalid, scope, err)
	}
	if !parsed.Valid || claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, fmt.Errorf("%w: %s token: malformed subject", domain.ErrTokenInvalid, scope)
	}
	return claims, nil
}

// validationTime backs the clock off by a nanosecond: jwt treats now == exp
// as expired, while a token is valid up to and including its exp second.
func (m *TokenManager) validationTime() time.Time {
	return m.now().Add(-time.Nanosecond)
}

func (m *TokenManager) secretFor(scope Scope) ([]byte, time.Duration) {
	if scope == ScopeRefresh {
		return m.refreshSecret, m.refreshTTL
	}
	return m.accessSecret, m.accessTTL
}
