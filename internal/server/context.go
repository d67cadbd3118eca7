package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/slackmcp/internal/auth"
	"github.com/teemow/slackmcp/internal/instrumentation"
	"github.com/teemow/slackmcp/internal/slack"
)

// cachedClient pairs a Slack client with the token it was built from,
// so a re-authentication with a different token replaces the client.
type cachedClient struct {
	client *slack.Client
	token  string
}

// ServerContext holds the shared state for the MCP server: the session
// registry, the OAuth flow, and a per-session cache of Slack clients.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	registry *auth.Registry
	flow     *auth.Flow
	clients  map[string]cachedClient // session ID -> Slack client
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	mu       sync.RWMutex
	shutdown bool
}

// ServerContextOption configures a ServerContext.
type ServerContextOption func(*ServerContext)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *instrumentation.Metrics) ServerContextOption {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithServerLogger sets the logger.
func WithServerLogger(logger *slog.Logger) ServerContextOption {
	return func(sc *ServerContext) {
		sc.logger = logger
	}
}

// NewServerContext creates a new server context.
func NewServerContext(ctx context.Context, registry *auth.Registry, flow *auth.Flow, opts ...ServerContextOption) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		registry: registry,
		flow:     flow,
		clients:  make(map[string]cachedClient),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Registry returns the session registry.
func (sc *ServerContext) Registry() *auth.Registry {
	return sc.registry
}

// Flow returns the OAuth flow.
func (sc *ServerContext) Flow() *auth.Flow {
	return sc.flow
}

// Metrics returns the metrics recorder, which may be a no-op.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// SlackClientForSession returns the Slack client for a session, creating
// and caching one from the session's bound credential. Returns nil if the
// session has no credential bound yet. A credential bound after a previous
// one (re-authentication) replaces the cached client.
func (sc *ServerContext) SlackClientForSession(sessionID string) *slack.Client {
	cred, ok := sc.registry.Credential(sessionID)
	if !ok {
		// Credential was unbound or the session expired; drop any stale client.
		sc.mu.Lock()
		delete(sc.clients, sessionID)
		sc.mu.Unlock()
		return nil
	}

	sc.mu.RLock()
	cached, hit := sc.clients[sessionID]
	sc.mu.RUnlock()
	if hit && cached.token == cred.AccessToken {
		return cached.client
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	// Re-check under the write lock; another request may have built it.
	if cached, hit := sc.clients[sessionID]; hit && cached.token == cred.AccessToken {
		return cached.client
	}
	client := slack.NewClient(cred.AccessToken, slack.WithClientLogger(sc.logger))
	sc.clients[sessionID] = cachedClient{client: client, token: cred.AccessToken}
	return client
}

// InvalidateSession removes the cached Slack client for a session.
func (sc *ServerContext) InvalidateSession(sessionID string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.clients, sessionID)
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context and the session registry.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	if sc.registry != nil {
		sc.registry.Stop()
	}
	return nil
}
