package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/repo"
)

// DefaultAgentSessionTTL is how long an idle agent session survives in Redis
const DefaultAgentSessionTTL = 24 * time.Hour

// ========== Memory ==========

// memoryAgentSessionRepo keeps agent sessions in process memory
type memoryAgentSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]domain.AgentSession
}

// NewMemoryAgentSessionRepo creates an in-memory agent session repository
func NewMemoryAgentSessionRepo() repo.AgentSessionRepo {
	return &memoryAgentSessionRepo{sessions: make(map[string]domain.AgentSession)}
}

// Get gets the session of a user
func (r *memoryAgentSessionRepo) Get(ctx context.Context, userID string) (*domain.AgentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Save saves a session
func (r *memoryAgentSessionRepo) Save(ctx context.Context, session *domain.AgentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.UserID] = *session
	return nil
}

// Delete deletes a session
func (r *memoryAgentSessionRepo) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	return nil
}

// ========== Redis ==========

func agentSessionKey(userID string) string { return "chatmate:agent:" + userID }

// agentSessionRecord is the JSON form of a session; Stage discriminates the variant
type agentSessionRecord struct {
	UserID       string    `json:"userId"`
	Stage        string    `json:"stage"`
	Duration     string    `json:"duration,omitempty"`
	PartnerID    string    `json:"partnerId,omitempty"`
	Batch        int       `json:"batch,omitempty"`
	Suggestions  string    `json:"suggestions,omitempty"`
	Initiate     bool      `json:"initiate,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func encodeAgentSession(s *domain.AgentSession) agentSessionRecord {
	rec := agentSessionRecord{
		UserID:    s.UserID,
		Stage:     string(s.Stage.Name()),
		UpdatedAt: s.UpdatedAt,
	}
	switch st := s.Stage.(type) {
	case domain.StageAnalyzing:
		rec.Duration = string(st.Duration)
	case domain.StageSuggestions:
		rec.PartnerID = st.PartnerID
		rec.Duration = string(st.Duration)
		rec.Batch = st.Batch
		rec.Suggestions = st.Suggestions
	case domain.StageCustomRequest:
		rec.Initiate = st.Initiate
		rec.Relationship = st.Relationship
	}
	return rec
}

func decodeAgentSession(rec agentSessionRecord) (*domain.AgentSession, error) {
	var stage domain.AgentStage
	switch domain.StageName(rec.Stage) {
	case domain.StageNameGreeting:
		stage = domain.StageGreeting{}
	case domain.StageNameAskingDuration:
		stage = domain.StageAskingDuration{}
	case domain.StageNameAnalyzing:
		stage = domain.StageAnalyzing{Duration: domain.HistoryDuration(rec.Duration)}
	case domain.StageNameSuggestions:
		stage = domain.StageSuggestions{
			PartnerID:   rec.PartnerID,
			Duration:    domain.HistoryDuration(rec.Duration),
			Batch:       rec.Batch,
			Suggestions: rec.Suggestions,
		}
	case domain.StageNameCustomRequest:
		stage = domain.StageCustomRequest{Initiate: rec.Initiate, Relationship: rec.Relationship}
	default:
		return nil, fmt.Errorf("unknown agent stage %q", rec.Stage)
	}
	return &domain.AgentSession{UserID: rec.UserID, Stage: stage, UpdatedAt: rec.UpdatedAt}, nil
}

// redisAgentSessionRepo stores agent sessions in Redis with an idle TTL
type redisAgentSessionRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisAgentSessionRepo creates a Redis-backed agent session repository
func NewRedisAgentSessionRepo(rdb *redis.Client, ttl time.Duration) repo.AgentSessionRepo {
	if ttl <= 0 {
		ttl = DefaultAgentSessionTTL
	}
	return &redisAgentSessionRepo{rdb: rdb, ttl: ttl}
}

// Get gets the session of a user
func (r *redisAgentSessionRepo) Get(ctx context.Context, userID string) (*domain.AgentSession, error) {
	raw, err := r.rdb.Get(ctx, agentSessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent session: %w", err)
	}

	var rec agentSessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode agent session: %w", err)
	}
	return decodeAgentSession(rec)
}

// Save saves a session and refreshes its TTL
func (r *redisAgentSessionRepo) Save(ctx context.Context, session *domain.AgentSession) error {
	raw, err := json.Marshal(encodeAgentSession(session))
	if err != nil {
		return fmt.Errorf("failed to encode agent session: %w", err)
	}
	if err := r.rdb.Set(ctx, agentSessionKey(session.UserID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save agent session: %w", err)
	}
	return nil
}

// Delete deletes a session
func (r *redisAgentSessionRepo) Delete(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, agentSessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete agent session: %w", err)
	}
	return nil
}
