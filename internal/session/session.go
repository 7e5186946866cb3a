/*
Package session keeps the per-browser context objects: one health profile,
the latest meal plan and a model-call rate limiter per session.
Nothing here is persisted; an evicted session is gone.
*/
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"MetaMeal/internal/profile"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const rateBurst = 3

// Outgoing mail is throttled independently of model calls.
const (
	mailBurst    = 3
	mailInterval = 10 * time.Minute
)

// Session is the explicit context object a UI session works against.
type Session struct {
	ID      string
	Profile *profile.Store

	limiter     *rate.Limiter
	mailLimiter *rate.Limiter
	busy        atomic.Bool

	mu       sync.RWMutex
	mealPlan string
}

// New creates a session with a default profile store.
func New(id string, perMinute int) *Session {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Session{
		ID:          id,
		Profile:     profile.NewStore(),
		limiter:     rate.NewLimiter(limit, rateBurst),
		mailLimiter: rate.NewLimiter(rate.Every(mailInterval), mailBurst),
	}
}

// Allow consumes one model call from the session's budget.
func (s *Session) Allow() bool {
	return s.limiter.Allow()
}

// AllowMail consumes one outgoing email from the session's budget.
func (s *Session) AllowMail() bool {
	return s.mailLimiter.Allow()
}

// MarkBusy marks the session busy. It returns false if a model call is already
// in flight for this session.
func (s *Session) MarkBusy() bool {
	return s.busy.CompareAndSwap(false, true)
}

// Done clears the busy mark set by MarkBusy.
func (s *Session) Done() {
	s.busy.Store(false)
}

// LatestMealPlan returns the most recent successful meal plan.
func (s *Session) LatestMealPlan() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mealPlan, s.mealPlan != ""
}

// SetLatestMealPlan records a meal plan for download or email.
func (s *Session) SetLatestMealPlan(text string) {
	s.mu.Lock()
	s.mealPlan = text
	s.mu.Unlock()
}

/* =================================================================================
								REGISTRY
=================================================================================*/

// Registry maps session IDs to sessions. Idle sessions expire after the TTL and
// the least recently used ones are evicted once the size limit is reached.
type Registry struct {
	mu        sync.Mutex
	cache     *expirable.LRU[string, *Session]
	perMinute int
}

// NewRegistry creates a registry holding at most size sessions.
func NewRegistry(size int, ttl time.Duration, perMinute int) *Registry {
	return &Registry{
		cache:     expirable.NewLRU[string, *Session](size, nil, ttl),
		perMinute: perMinute,
	}
}

// Get returns a live session and extends its lifetime.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touch(id)
}

// GetOrCreate returns the session for id, or a fresh one under a new ID when id
// is empty or has expired.
func (r *Registry) GetOrCreate(id string) (sess *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.touch(id); ok {
		return sess, false
	}
	sess = New(uuid.NewString(), r.perMinute)
	r.cache.Add(sess.ID, sess)
	return sess, true
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}

func (r *Registry) touch(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	sess, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	// Re-adding resets the expiry so active sessions stay alive.
	r.cache.Add(id, sess)
	return sess, true
}
