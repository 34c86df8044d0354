package service

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/inkwell/internal/auth"
	"github.com/utafrali/inkwell/internal/domain"
)

// TokenIssuer mints and verifies access/refresh token pairs.
type TokenIssuer interface {
	IssueTokenPair(subjectID int64, email string) (domain.TokenPair, error)
	Verify(token string, scope auth.Scope) (*auth.Claims, error)
}

// EventPublisher announces domain changes. Publishing is best effort:
// services log failures and carry on.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserUpdated(ctx context.Context, user *domain.User, actorID int64) error
	PublishBlogDeleted(ctx context.Context, blog *domain.Blog, actorID int64) error
}

var authOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inkwell_auth_operations_total",
	Help: "Authentication operations by operation and outcome.",
}, []string{"operation", "outcome"})

func recordOutcome(operation, outcome string) {
	authOutcomes.WithLabelValues(operation, outcome).Inc()
}
