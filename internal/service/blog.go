package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/inkwell/internal/auth"
	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/internal/repository"
	apperrors "github.com/utafrali/inkwell/pkg/errors"
	"github.com/utafrali/inkwell/pkg/pagination"
	"github.com/utafrali/inkwell/pkg/slug"
)

// BlogService manages user-owned blogs.
type BlogService struct {
	blogs  repository.BlogRepository
	events EventPublisher
	logger *slog.Logger
}

// NewBlogService creates a new blog service.
func NewBlogService(blogs repository.BlogRepository, events EventPublisher, logger *slog.Logger) *BlogService {
	return &BlogService{blogs: blogs, events: events, logger: logger}
}

func nameAndSlug(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", apperrors.InvalidInput("name is required")
	}
	s := slug.Generate(name)
	if s == "" {
		return "", "", apperrors.InvalidInput("name must contain at least one letter or digit")
	}
	return name, s, nil
}

func mapBlogErr(err error, op string) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return domain.BlogNotFoundError()
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Create adds a blog owned by p.
func (s *BlogService) Create(ctx context.Context, p domain.Principal, name string) (*domain.Blog, error) {
	name, sl, err := nameAndSlug(name)
	if err != nil {
		return nil, err
	}

	blog := &domain.Blog{UserID: p.ID, Name: name, Slug: sl}
	if err := s.blogs.Create(ctx, blog); err != nil {
		return nil, mapBlogErr(err, "create blog")
	}

	s.logger.InfoContext(ctx, "blog created",
		slog.Int64("blog_id", blog.ID),
		slog.Int64("user_id", p.ID),
	)
	return blog, nil
}

// Get returns a blog by id.
func (s *BlogService) Get(ctx context.Context, id int64) (*domain.Blog, error) {
	blog, err := s.blogs.GetByID(ctx, id)
	if err != nil {
		return nil, mapBlogErr(err, "get blog")
	}
	return blog, nil
}

// ListByUser returns a page of the user's blogs and the total count.
func (s *BlogService) ListByUser(ctx context.Context, userID int64, params pagination.Params) ([]domain.Blog, int, error) {
	blogs, total, err := s.blogs.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list blogs: %w", err)
	}
	return blogs, total, nil
}

// List returns a page of all blogs, optionally narrowed to names containing
// title, and the total count.
func (s *BlogService) List(ctx context.Context, title string, params pagination.Params) ([]domain.Blog, int, error) {
	blogs, total, err := s.blogs.List(ctx, strings.TrimSpace(title), params)
	if err != nil {
		return nil, 0, fmt.Errorf("list blogs: %w", err)
	}
	return blogs, total, nil
}

// Update renames blog id on behalf of p, who must own it or be elevated.
func (s *BlogService) Update(ctx context.Context, p domain.Principal, id int64, name string) (*domain.Blog, error) {
	name, sl, err := nameAndSlug(name)
	if err != nil {
		return nil, err
	}

	blog, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(blog.UserID, p); err != nil {
		s.logger.WarnContext(ctx, "blog update denied",
			slog.Int64("blog_id", id),
			slog.Int64("actor_id", p.ID),
		)
		return nil, err
	}

	blog.Name, blog.Slug = name, sl
	if err := s.blogs.Update(ctx, blog); err != nil {
		return nil, mapBlogErr(err, "update blog")
	}

	s.logger.InfoContext(ctx, "blog updated",
		slog.Int64("blog_id", blog.ID),
		slog.Int64("actor_id", p.ID),
	)
	return blog, nil
}

// Remove deletes blog id on behalf of p, who must own it or be elevated.
func (s *BlogService) Remove(ctx context.Context, p domain.Principal, id int64) error {
	blog, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(blog.UserID, p); err != nil {
		s.logger.WarnContext(ctx, "blog removal denied",
			slog.Int64("blog_id", id),
			slog.Int64("actor_id", p.ID),
		)
		return err
	}

	if err := s.blogs.Delete(ctx, id); err != nil {
		return mapBlogErr(err, "delete blog")
	}

	if err := s.events.PublishBlogDeleted(ctx, blog, p.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish blog.deleted event",
			slog.Int64("blog_id", blog.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "blog removed",
		slog.Int64("blog_id", id),
		slog.Int64("actor_id", p.ID),
	)
	return nil
}
