package repo

import (
	"context"
	"errors"
	"time"

	"github.com/chatmate/chatmate/internal/biz/domain"
)

// ErrDuplicateUser is returned by Create when the user ID or phone number is taken
var ErrDuplicateUser = errors.New("duplicate user")

// UserRepo is the user directory interface
type UserRepo interface {
	// Create inserts a new user
	Create(ctx context.Context, user *domain.User) error

	// FindByIdentifier finds a user by user ID or phone number, returns nil if not found
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)

	// FindByUserID finds a user by user ID, returns nil if not found
	FindByUserID(ctx context.Context, userID string) (*domain.User, error)

	// SetOnline updates online status and last seen time
	SetOnline(ctx context.Context, userID string, online bool, at time.Time) error
}

// PresenceRepo mirrors live presence to a shared store
type PresenceRepo interface {
	// MarkOnline records that the user holds a live connection
	MarkOnline(ctx context.Context, userID, connID string, ttl time.Duration) error

	// MarkOffline removes the user's presence record
	MarkOffline(ctx context.Context, userID string) error

	// Lookup returns the connection ID of an online user
	Lookup(ctx context.Context, userID string) (connID string, online bool, err error)
}
