package data

import (
	"context"
	"fmt"

	"github.com/chatmate/chatmate/internal/biz/repo"
	"github.com/chatmate/chatmate/internal/conf"
	"github.com/chatmate/chatmate/internal/infra/openai"
	"github.com/chatmate/chatmate/internal/logger"
)

// Repositories contains all repositories
type Repositories struct {
	Message      repo.MessageRepo
	User         repo.UserRepo
	Presence     repo.PresenceRepo
	AgentSession repo.AgentSessionRepo
	LLM          repo.LLMRepo // nil without an API key

	closers []func() error
}

// NewRepositories creates all repositories for the configured backends
func NewRepositories(ctx context.Context, cfg *conf.Config, llmClient *openai.Client) (*Repositories, error) {
	r := &Repositories{LLM: NewLLMRepo(llmClient)}

	switch cfg.Store.Driver {
	case conf.DriverMongo:
		store, err := OpenMongo(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, cfg.Store.MongoMaxPool)
		if err != nil {
			return nil, err
		}
		r.Message = NewMongoMessageRepo(store)
		r.User = NewMongoUserRepo(store)
		r.closers = append(r.closers, store.Close)
	case conf.DriverPostgres:
		store, err := OpenPostgres(cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		r.Message = NewMessageRepo(store)
		r.User = NewUserRepo(store)
		r.closers = append(r.closers, store.Close)
	case conf.DriverSQLite:
		store, err := OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		r.Message = NewMessageRepo(store)
		r.User = NewUserRepo(store)
		r.closers = append(r.closers, store.Close)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	logger.Infof("Store opened: %s", cfg.Store.Driver)

	if cfg.Redis.Enabled() {
		rdb, err := OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.Presence = NewRedisPresenceRepo(rdb)
		r.AgentSession = NewRedisAgentSessionRepo(rdb, cfg.Redis.AgentSessionTTL)
		r.closers = append(r.closers, rdb.Close)
		logger.Infof("Redis connected: %s", cfg.Redis.Addr)
	} else {
		r.Presence = NewNoopPresenceRepo()
		r.AgentSession = NewMemoryAgentSessionRepo()
	}

	return r, nil
}

// Close closes every backend, in reverse order of opening
func (r *Repositories) Close() error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}
