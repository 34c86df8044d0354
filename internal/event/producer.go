package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/inkwell/internal/domain"
	pkgkafka "github.com/utafrali/inkwell/pkg/kafka"
	"github.com/utafrali/inkwell/pkg/logger"
)

// Event types. The Kafka topic is "<prefix>.<type>".
const (
	TypeUserRegistered = "user.registered"
	TypeUserUpdated    = "user.updated"
	TypeBlogDeleted    = "blog.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeUser = "user"
	AggregateTypeBlog = "blog"
)

// Source identifier for events originating from this service.
const SourceInkwell = "inkwell"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// UserUpdatedData is the payload for a user.updated event.
type UserUpdatedData struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	UpdatedBy int64  `json:"updated_by"`
}

// BlogDeletedData is the payload for a blog.deleted event.
type BlogDeletedData struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Slug      string `json:"slug"`
	DeletedBy int64  `json:"deleted_by"`
}

// publisher is the subset of *pkgkafka.Producer used here.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes inkwell domain events to Kafka.
type Producer struct {
	kafka       publisher
	topicPrefix string
	logger      *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka publisher, topicPrefix string, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:       kafka,
		topicPrefix: topicPrefix,
		logger:      logger,
	}
}

// Topic returns the Kafka topic an event type is published to.
func (p *Producer) Topic(eventType string) string {
	if p.topicPrefix == "" {
		return eventType
	}
	return p.topicPrefix + "." + eventType
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TypeUserRegistered, AggregateTypeUser, user.ID, UserRegisteredData{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      string(user.Role),
	})
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User, actorID int64) error {
	return p.publish(ctx, TypeUserUpdated, AggregateTypeUser, user.ID, UserUpdatedData{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      string(user.Role),
		UpdatedBy: actorID,
	})
}

// PublishBlogDeleted publishes a blog.deleted event.
func (p *Producer) PublishBlogDeleted(ctx context.Context, blog *domain.Blog, actorID int64) error {
	return p.publish(ctx, TypeBlogDeleted, AggregateTypeBlog, blog.ID, BlogDeletedData{
		ID:        blog.ID,
		UserID:    blog.UserID,
		Slug:      blog.Slug,
		DeletedBy: actorID,
	})
}

func (p *Producer) publish(ctx context.Context, eventType, aggregateType string, aggregateID int64, data any) error {
	id := strconv.FormatInt(aggregateID, 10)

	event, err := pkgkafka.NewEvent(eventType, id, aggregateType, SourceInkwell, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}

	topic := p.Topic(eventType)
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("topic", topic),
		slog.String("aggregate_id", id),
	)
	return nil
}

// Discard drops every event. It stands in for the producer when events
// are disabled.
type Discard struct{}

func (Discard) PublishUserRegistered(context.Context, *domain.User) error { return nil }
func (Discard) PublishUserUpdated(context.Context, *domain.User, int64) error { return nil }
func (Discard) PublishBlogDeleted(context.Context, *domain.Blog, int64) error { return nil }
