package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"philcali.me/chefbot/internal/metrics"
)

// CacheFactory creates the result cache for a new conversation session.
type CacheFactory func(conversationID int64) ResultCache

func MemoryFactory(int64) ResultCache {
	return NewMemoryCache()
}

// Registry owns every live session. A session is created on a
// conversation's first event and disposed by End or once it has been idle
// for longer than the idle timeout.
type Registry struct {
	mu          sync.Mutex
	sessions    map[int64]*Session
	factory     CacheFactory
	idleTimeout time.Duration
	now         func() time.Time
}

func NewRegistry(factory CacheFactory, idleTimeout time.Duration) *Registry {
	if factory == nil {
		factory = MemoryFactory
	}
	return &Registry{
		sessions:    make(map[int64]*Session),
		factory:     factory,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Acquire returns the conversation's session, creating it if needed, and
// marks it as recently used.
func (r *Registry) Acquire(conversationID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if s, ok := r.sessions[conversationID]; ok {
		s.lastSeen = now
		return s
	}
	s := &Session{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Cache:          r.factory(conversationID),
		CreatedAt:      now,
		lastSeen:       now,
	}
	r.sessions[conversationID] = s
	metrics.Sessions.Inc()
	log.Debug().Int64("conversation", conversationID).Str("session", s.ID).Msg("session created")
	return s
}

func (r *Registry) Get(conversationID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[conversationID]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) dispose(ctx context.Context, s *Session, reason string) error {
	metrics.Sessions.Dec()
	log.Debug().Int64("conversation", s.ConversationID).Str("session", s.ID).Str("reason", reason).Msg("session disposed")
	return s.Cache.Clear(ctx)
}

// End disposes the conversation's session. The caller must not hold the
// session's lock. Ending an unknown conversation is a no-op.
func (r *Registry) End(ctx context.Context, conversationID int64) error {
	r.mu.Lock()
	s, ok := r.sessions[conversationID]
	if ok {
		delete(r.sessions, conversationID)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return r.dispose(ctx, s, "ended")
}

// Sweep disposes sessions idle past the timeout. Sessions that are in the
// middle of an event are skipped.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	r.mu.Lock()
	now := r.now()
	var expired []*Session
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) <= r.idleTimeout {
			continue
		}
		if !s.turn.TryLock() {
			continue
		}
		delete(r.sessions, id)
		expired = append(expired, s)
	}
	r.mu.Unlock()
	for _, s := range expired {
		if err := r.dispose(ctx, s, "idle"); err != nil {
			log.Warn().Err(err).Int64("conversation", s.ConversationID).Msg("failed to clear expired session")
		}
		s.turn.Unlock()
	}
	return len(expired)
}

// Run sweeps at the given interval until the context is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(ctx); n > 0 {
				log.Info().Int("expired", n).Msg("swept idle sessions")
			}
		}
	}
}

// Close disposes every session, in conversation order.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	ids := maps.Keys(r.sessions)
	slices.Sort(ids)
	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, r.sessions[id])
	}
	r.sessions = make(map[int64]*Session)
	r.mu.Unlock()
	var firstErr error
	for _, s := range sessions {
		if err := r.dispose(ctx, s, "shutdown"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
