package callflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionLimit is returned when a new call would exceed the configured
// concurrent session cap.
var ErrSessionLimit = errors.New("active session limit reached")

const activeCallsKey = "active_calls"

// Registry tracks every live call session and routes webhook events to the
// machine. Lock order is always session before registry: a session lock is
// never acquired while r.mu is held for writing.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	machine *Machine
	logger  *slog.Logger
	rdb     *redis.Client // optional mirror for dashboards; nil disables it

	maxSessions int
	timeout     time.Duration
	now         func() time.Time
}

func NewRegistry(machine *Machine, logger *slog.Logger, rdb *redis.Client, maxSessions int, timeout time.Duration) *Registry {
	if maxSessions <= 0 {
		maxSessions = 100
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Registry{
		sessions:    make(map[string]*Session),
		machine:     machine,
		logger:      logger,
		rdb:         rdb,
		maxSessions: maxSessions,
		timeout:     timeout,
		now:         time.Now,
	}
}

// HandleEvent delivers one webhook event to its session, creating the
// session on first contact. An event for an unknown call ID after eviction
// gets a fresh session rather than an error; the machine's greeting state
// recovers the conversation.
func (r *Registry) HandleEvent(ctx context.Context, ev Event) (Response, error) {
	sess, created, err := r.getOrCreate(ev)
	if err != nil {
		return Response{}, err
	}
	if created {
		r.mirrorAdd(ctx, sess)
	}

	sess.mu.Lock()
	resp := r.machine.Step(ctx, sess, ev)
	done := sess.state.Terminal()
	if done {
		r.mu.Lock()
		delete(r.sessions, sess.CallID)
		r.mu.Unlock()
	}
	sess.mu.Unlock()

	if done {
		r.mirrorRemove(ctx, sess.CallID)
		r.logger.Info("call session closed", "call_id", sess.CallID, "company_id", sess.CompanyID)
	}
	return resp, nil
}

func (r *Registry) getOrCreate(ev Event) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[ev.CallID]; ok {
		return sess, false, nil
	}
	if len(r.sessions) >= r.maxSessions {
		return nil, false, ErrSessionLimit
	}
	sess := newSession(ev.CallID, ev.CompanyID, r.now())
	r.sessions[ev.CallID] = sess
	r.logger.Info("call session opened",
		"call_id", ev.CallID, "company_id", ev.CompanyID, "active", len(r.sessions))
	return sess, true, nil
}

// Get returns the live session for a call, if any.
func (r *Registry) Get(callID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[callID]
	return sess, ok
}

// ActiveCalls lists the call IDs currently in flight.
func (r *Registry) ActiveCalls() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

// CleanupStale evicts sessions idle longer than the timeout and returns how
// many were removed. Candidates are gathered under a read lock first so a
// session lock is never taken inside the registry write lock.
func (r *Registry) CleanupStale(ctx context.Context) int {
	cutoff := r.now().Add(-r.timeout)

	r.mu.RLock()
	candidates := make([]*Session, 0)
	for _, sess := range r.sessions {
		candidates = append(candidates, sess)
	}
	r.mu.RUnlock()

	removed := 0
	for _, sess := range candidates {
		sess.mu.Lock()
		stale := sess.lastActivity.Before(cutoff)
		if stale && !sess.state.Terminal() {
			sess.setState(StateEnded, r.now())
		}
		if stale {
			r.mu.Lock()
			if _, ok := r.sessions[sess.CallID]; ok {
				delete(r.sessions, sess.CallID)
				removed++
			}
			r.mu.Unlock()
		}
		sess.mu.Unlock()
		if stale {
			r.mirrorRemove(ctx, sess.CallID)
			r.logger.Info("stale call session evicted", "call_id", sess.CallID)
		}
	}
	return removed
}

// Run sweeps for stale sessions until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.CleanupStale(ctx); n > 0 {
				r.logger.Info("session sweep", "evicted", n)
			}
		}
	}
}

// Shutdown closes every open session, waiting on in-flight turns.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		if !sess.state.Terminal() {
			sess.setState(StateEnded, r.now())
		}
		sess.mu.Unlock()
		r.mirrorRemove(ctx, sess.CallID)
	}
	r.logger.Info("registry shut down", "closed", len(sessions))
}

func (r *Registry) mirrorAdd(ctx context.Context, sess *Session) {
	if r.rdb == nil {
		return
	}
	key := "call:" + sess.CallID
	if err := r.rdb.HSet(ctx, key,
		"company_id", sess.CompanyID,
		"started_at", sess.createdAt.Format(time.RFC3339),
	).Err(); err != nil {
		r.logger.Warn("redis session mirror failed", "call_id", sess.CallID, "err", err)
		return
	}
	r.rdb.SAdd(ctx, activeCallsKey, sess.CallID)
	r.rdb.Expire(ctx, key, r.timeout+time.Hour)
}

func (r *Registry) mirrorRemove(ctx context.Context, callID string) {
	if r.rdb == nil {
		return
	}
	r.rdb.SRem(ctx, activeCallsKey, callID)
	r.rdb.Del(ctx, "call:"+callID)
}
