package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultStateTTL is how long an issued OAuth state token stays redeemable.
	DefaultStateTTL = 10 * time.Minute

	// DefaultSessionTimeout is how long an idle session is kept before the
	// sweeper removes it.
	DefaultSessionTimeout = 24 * time.Hour

	// DefaultSweepInterval is how often the background sweeper runs.
	DefaultSweepInterval = 10 * time.Minute
)

// Credential is the Slack user token bound to a session after a completed
// OAuth flow. It is owned exclusively by its session and is never included
// in tool results or HTTP responses.
type Credential struct {
	AccessToken string
	UserID      string
	Scopes      []string
	ObtainedAt  time.Time
}

// Session tracks one logical client connection. A session may or may not
// have a credential bound; it exists from the first request (or OAuth URL
// issuance) until the idle sweeper removes it.
type Session struct {
	ID         string
	CreatedAt  time.Time
	LastSeenAt time.Time
	Credential *Credential
}

// stateEntry records which session an issued state token belongs to.
type stateEntry struct {
	sessionID string
	issuedAt  time.Time
}

// Registry is the concurrency-safe store for sessions, their bound
// credentials, and one-time OAuth state tokens. All mutating operations run
// their full check-then-act sequence under one lock so that concurrent
// callers never observe a partially written session and a state token can
// only ever be redeemed once.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	states   map[string]stateEntry

	stateTTL       time.Duration
	sessionTimeout time.Duration

	sweepTicker *time.Ticker
	sweepDone   chan struct{}
	stopOnce    sync.Once
	logger      *slog.Logger

	onSessionStart func()
	onSessionEnd   func()
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStateTTL overrides the state token lifetime.
func WithStateTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.stateTTL = ttl }
}

// WithSessionTimeout overrides the idle session lifetime.
func WithSessionTimeout(timeout time.Duration) RegistryOption {
	return func(r *Registry) { r.sessionTimeout = timeout }
}

// WithLogger sets the logger used by the registry.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// WithSessionObserver registers callbacks fired when a session is created
// and when one is removed. Used to keep the active session gauge accurate.
// Callbacks run with the registry lock held and must not call back into the
// registry.
func WithSessionObserver(onStart, onEnd func()) RegistryOption {
	return func(r *Registry) {
		r.onSessionStart = onStart
		r.onSessionEnd = onEnd
	}
}

// NewRegistry creates a registry and starts its background sweeper.
// Call Stop when the registry is no longer needed.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions:       make(map[string]*Session),
		states:         make(map[string]stateEntry),
		stateTTL:       DefaultStateTTL,
		sessionTimeout: DefaultSessionTimeout,
		sweepDone:      make(chan struct{}),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.sweepTicker = time.NewTicker(DefaultSweepInterval)
	go r.sweepLoop()

	return r
}

// CreateOrGet returns a snapshot of the session with the given id, creating
// an empty record if none exists. Safe to call from concurrent requests.
func (r *Registry) CreateOrGet(sessionID string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createOrGetLocked(sessionID)
}

// createOrGetLocked must be called with r.mu held. It returns a copy so
// callers never hold a reference into the map.
func (r *Registry) createOrGetLocked(sessionID string) Session {
	sess, ok := r.sessions[sessionID]
	if !ok {
		now := time.Now()
		sess = &Session{ID: sessionID, CreatedAt: now, LastSeenAt: now}
		r.sessions[sessionID] = sess
		r.logger.Debug("created session", "session_id", sessionID)
		if r.onSessionStart != nil {
			r.onSessionStart()
		}
	} else {
		sess.LastSeenAt = time.Now()
	}
	return snapshot(sess)
}

// Touch updates the session's last-seen time, creating the session if it
// does not exist yet.
func (r *Registry) Touch(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createOrGetLocked(sessionID)
}

// GenerateState issues a one-time CSRF state token bound to the given
// session. The session is created if absent, since a caller may request an
// authorization URL before any other request reaches the server. The token
// carries 256 bits from crypto/rand.
func (r *Registry) GenerateState(sessionID string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.createOrGetLocked(sessionID)
	r.states[state] = stateEntry{sessionID: sessionID, issuedAt: time.Now()}

	r.logger.Debug("issued oauth state",
		"session_id", sessionID,
		"expires_at", time.Now().Add(r.stateTTL))
	return state, nil
}

// PeekStateOwner reports which session an outstanding state token belongs
// to, without consuming it. Expired tokens are reported as unknown. The
// callback handler uses this to learn the claimed session before asserting
// the match; the later ValidateAndConsumeState call remains the single
// authoritative redemption.
func (r *Registry) PeekStateOwner(state string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.states[state]
	if !ok || time.Since(entry.issuedAt) > r.stateTTL {
		return "", false
	}
	return entry.sessionID, true
}

// ValidateAndConsumeState redeems a state token. It checks existence,
// expiry, and session ownership atomically and deletes the entry in the
// same critical section regardless of outcome, so a token can never be
// replayed after a failed attempt and exactly one of two racing
// redemptions succeeds.
func (r *Registry) ValidateAndConsumeState(state, expectedSessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.states[state]
	if !ok {
		return false
	}

	// Consumed exactly once: gone after this call no matter what.
	delete(r.states, state)

	if time.Since(entry.issuedAt) > r.stateTTL {
		r.logger.Warn("oauth state expired", "session_id", entry.sessionID)
		return false
	}
	if entry.sessionID != expectedSessionID {
		r.logger.Warn("oauth state session mismatch",
			"expected", expectedSessionID, "actual", entry.sessionID)
		return false
	}
	return true
}

// BindCredential associates a credential with a session, overwriting any
// prior binding. The session is created if it does not exist.
func (r *Registry) BindCredential(sessionID string, cred Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		now := time.Now()
		sess = &Session{ID: sessionID, CreatedAt: now}
		r.sessions[sessionID] = sess
		if r.onSessionStart != nil {
			r.onSessionStart()
		}
	}
	c := cred
	sess.Credential = &c
	sess.LastSeenAt = time.Now()

	r.logger.Info("bound credential to session",
		"session_id", sessionID,
		"user_id", cred.UserID,
		"scopes", len(cred.Scopes))
}

// Unbind removes any credential bound to the session. The session itself
// survives until the idle sweep.
func (r *Registry) Unbind(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[sessionID]; ok {
		sess.Credential = nil
		sess.LastSeenAt = time.Now()
	}
}

// Credential returns a copy of the credential bound to the session, if any.
// Unknown sessions simply report no credential.
func (r *Registry) Credential(sessionID string) (Credential, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok || sess.Credential == nil {
		return Credential{}, false
	}
	sess.LastSeenAt = time.Now()
	return *sess.Credential, true
}

// RemoveSession drops a session and its credential.
func (r *Registry) RemoveSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; ok {
		delete(r.sessions, sessionID)
		if r.onSessionEnd != nil {
			r.onSessionEnd()
		}
	}
}

// SweepExpired removes expired state tokens and idle sessions. It runs
// periodically in the background and may be called directly.
func (r *Registry) SweepExpired() (states, sessions int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for state, entry := range r.states {
		if now.Sub(entry.issuedAt) > r.stateTTL {
			delete(r.states, state)
			states++
		}
	}
	for id, sess := range r.sessions {
		if now.Sub(sess.LastSeenAt) > r.sessionTimeout {
			delete(r.sessions, id)
			sessions++
			if r.onSessionEnd != nil {
				r.onSessionEnd()
			}
		}
	}
	if states > 0 || sessions > 0 {
		r.logger.Info("swept expired entries",
			"states", states, "sessions", sessions)
	}
	return states, sessions
}

// Stats reports registry sizes. Used by readiness checks and metrics.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bound := 0
	for _, sess := range r.sessions {
		if sess.Credential != nil {
			bound++
		}
	}
	return map[string]int{
		"sessions":       len(r.sessions),
		"bound_sessions": bound,
		"pending_states": len(r.states),
	}
}

// Stop halts the background sweeper. Safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		r.sweepTicker.Stop()
		close(r.sweepDone)
	})
}

func (r *Registry) sweepLoop() {
	for {
		select {
		case <-r.sweepTicker.C:
			r.SweepExpired()
		case <-r.sweepDone:
			return
		}
	}
}

func snapshot(s *Session) Session {
	out := Session{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastSeenAt: s.LastSeenAt,
	}
	if s.Credential != nil {
		c := *s.Credential
		out.Credential = &c
	}
	return out
}
