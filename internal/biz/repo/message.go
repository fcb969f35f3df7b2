package repo

import (
	"context"
	"time"

	"github.com/chatmate/chatmate/internal/biz/domain"
)

// MessageRepo is the message repository interface
// Responsible for message persistence (SQLite, PostgreSQL or MongoDB)
type MessageRepo interface {
	// Save inserts a new message and assigns its ID and CreatedAt
	Save(ctx context.Context, msg *domain.Message) error

	// MarkDelivered sets the delivered flag of a message
	MarkDelivered(ctx context.Context, id string) error

	// GetByID gets a message by ID, returns nil if not found
	GetByID(ctx context.Context, id string) (*domain.Message, error)

	// ListBetween lists one page of messages between two users, newest first
	ListBetween(ctx context.Context, a, b string, offset, limit int) ([]domain.Message, error)

	// ListSince lists messages between two users created at or after since, oldest first
	ListSince(ctx context.Context, a, b string, since time.Time, limit int) ([]domain.Message, error)

	// ListInvolving lists every message sent or received by userID, newest first
	ListInvolving(ctx context.Context, userID string) ([]domain.Message, error)

	// MarkRead marks all unread messages from sender to receiver as read
	// Returns the number of messages changed
	MarkRead(ctx context.Context, receiver, sender string, at time.Time) (int64, error)

	// MarkMessageRead marks a single message as read, no-op if already read
	MarkMessageRead(ctx context.Context, id string, at time.Time) error
}
