package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/utafrali/inkwell/internal/auth"
	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/internal/repository"
	apperrors "github.com/utafrali/inkwell/pkg/errors"
	"github.com/utafrali/inkwell/pkg/pagination"
)

// UserService implements profile reads and owner-gated profile changes.
type UserService struct {
	users  repository.UserRepository
	events EventPublisher
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, events EventPublisher, logger *slog.Logger) *UserService {
	return &UserService{users: users, events: events, logger: logger}
}

func userNotFound(id int64) error {
	return apperrors.NotFound("user", strconv.FormatInt(id, 10))
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, userNotFound(id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns a page of users and the total count.
func (s *UserService) List(ctx context.Context, params pagination.Params) ([]domain.User, int, error) {
	users, total, err := s.users.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Update changes profile fields of user id on behalf of p. Only the owner
// or an elevated role may do so, and only an admin may change roles.
func (s *UserService) Update(ctx context.Context, p domain.Principal, id int64, fields domain.UserFields) (*domain.User, error) {
	if fields.Empty() {
		return nil, apperrors.InvalidInput("no fields to update")
	}
	if fields.Role != nil {
		if !fields.Role.Valid() {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", *fields.Role))
		}
		if p.Role != domain.RoleAdmin {
			s.logger.WarnContext(ctx, "role change denied",
				slog.Int64("actor_id", p.ID),
				slog.Int64("target_id", id),
			)
			return nil, domain.NotAuthorizedError()
		}
	}
	fields.FirstName = trimmed(fields.FirstName)
	fields.LastName = trimmed(fields.LastName)

	if err := s.authorize(ctx, p, id); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateFields(ctx, id, fields)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, userNotFound(id)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.events.PublishUserUpdated(ctx, user, p.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user updated",
		slog.Int64("user_id", user.ID),
		slog.Int64("actor_id", p.ID),
	)
	return user, nil
}

// Remove deletes user id on behalf of p. The user's blogs go with it.
func (s *UserService) Remove(ctx context.Context, p domain.Principal, id int64) error {
	if err := s.authorize(ctx, p, id); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return userNotFound(id)
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "user removed",
		slog.Int64("user_id", id),
		slog.Int64("actor_id", p.ID),
	)
	return nil
}

// authorize applies the ownership check to a user account. Admin accounts
// are additionally shielded from moderators.
func (s *UserService) authorize(ctx context.Context, p domain.Principal, id int64) error {
	target, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(target.ID, p); err != nil {
		return err
	}
	if target.Role == domain.RoleAdmin && p.ID != target.ID && p.Role != domain.RoleAdmin {
		return domain.NotAuthorizedError()
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
