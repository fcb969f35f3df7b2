package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chatmate/chatmate/internal/biz/repo"
	"github.com/chatmate/chatmate/internal/logger"
)

// PresenceRefresher renews the presence TTL of every live connection.
// Records of a crashed process expire after one TTL.
type PresenceRefresher struct {
	hub      *Hub
	presence repo.PresenceRepo
	ttl      time.Duration
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *zap.Logger
}

// NewPresenceRefresher creates a new presence refresher, refreshing three times per TTL
func NewPresenceRefresher(hub *Hub, presence repo.PresenceRepo, ttl time.Duration) *PresenceRefresher {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &PresenceRefresher{
		hub:      hub,
		presence: presence,
		ttl:      ttl,
		interval: ttl / 3,
		log:      logger.Named("presence"),
	}
}

// Start starts the refresh loop
func (r *PresenceRefresher) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.loop()

	r.log.Info("presence refresher started", zap.Duration("interval", r.interval))
}

// Stop stops the refresh loop
func (r *PresenceRefresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *PresenceRefresher) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.refresh(r.ctx)
		}
	}
}

func (r *PresenceRefresher) refresh(ctx context.Context) {
	for userID, connID := range r.hub.Connections() {
		if err := r.presence.MarkOnline(ctx, userID, connID, r.ttl); err != nil {
			r.log.Warn("presence refresh failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
}
