package repo

import (
	"context"

	"github.com/chatmate/chatmate/internal/biz/domain"
)

// AgentSessionRepo is the agent session repository interface
// Responsible for scripted agent dialogue state (in-memory or Redis)
type AgentSessionRepo interface {
	// Get gets the session of a user, returns nil if none exists
	Get(ctx context.Context, userID string) (*domain.AgentSession, error)

	// Save saves a session (create or update)
	Save(ctx context.Context, session *domain.AgentSession) error

	// Delete deletes a session, no error if it does not exist
	Delete(ctx context.Context, userID string) error
}
