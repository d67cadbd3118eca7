package auth

import (
	"context"
	"log/slog"
	"time"
)

// DefaultExchangeTimeout bounds the code-for-token network call to Slack.
// A timed-out exchange leaves the session unbound; no cleanup is needed
// because the state token was already consumed.
const DefaultExchangeTimeout = 30 * time.Second

// TokenExchanger performs the code-for-token exchange with the identity
// provider. Implemented by the Slack client; faked in tests.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (Credential, error)
}

// CallbackResult is the successful outcome of an OAuth callback: the
// session that completed authorization and the external user it
// authenticated as. The credential itself stays inside the registry.
type CallbackResult struct {
	SessionID string
	UserID    string
}

// Flow orchestrates the three-way OAuth authorization-code exchange:
// URL issuance, callback validation against the one-time state token, the
// code-for-token exchange, and credential binding.
type Flow struct {
	config          *Config
	registry        *Registry
	exchanger       TokenExchanger
	exchangeTimeout time.Duration
	logger          *slog.Logger
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithExchangeTimeout overrides the bound on the token exchange call.
func WithExchangeTimeout(d time.Duration) FlowOption {
	return func(f *Flow) { f.exchangeTimeout = d }
}

// WithFlowLogger sets the flow's logger.
func WithFlowLogger(logger *slog.Logger) FlowOption {
	return func(f *Flow) { f.logger = logger }
}

// NewFlow creates an authorization flow over the given registry and
// exchanger.
func NewFlow(config *Config, registry *Registry, exchanger TokenExchanger, opts ...FlowOption) *Flow {
	f := &Flow{
		config:          config,
		registry:        registry,
		exchanger:       exchanger,
		exchangeTimeout: DefaultExchangeTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Config returns the provider configuration the flow was built with.
func (f *Flow) Config() *Config {
	return f.config
}

// IssueURL generates a state token for the session resolved from ctx and
// returns the Slack authorization URL carrying it. The session is created
// if it does not exist yet, since URL issuance may be the first thing a
// caller does.
func (f *Flow) IssueURL(ctx context.Context) (string, *FlowError) {
	if !f.config.IsConfigured() {
		return "", ErrNotConfigured
	}

	sessionID, ok := SessionIDFromContext(ctx)
	if !ok {
		return "", ErrNoSession
	}

	state, err := f.registry.GenerateState(sessionID)
	if err != nil {
		return "", NewFlowError(KindConfigurationError,
			"Failed to generate OAuth state.", 500)
	}

	f.logger.Info("issued authorization url", "session_id", sessionID)
	return f.config.AuthorizationURL(state), nil
}

// HandleCallback validates an OAuth callback and, on success, exchanges the
// authorization code and binds the resulting credential to the session that
// issued the state token.
//
// The state token is consumed before the exchange: a failed or timed-out
// exchange never leaves a redeemable token behind, and the session stays
// unbound until the exchange fully succeeds. The exchange runs without any
// registry lock held; the registry is touched again only to write the
// result.
func (f *Flow) HandleCallback(ctx context.Context, code, state, providerError string) (*CallbackResult, *FlowError) {
	if providerError != "" {
		f.logger.Warn("provider denied authorization", "error", providerError)
		return nil, ProviderDeniedError(providerError)
	}
	if code == "" {
		return nil, ErrMissingCode
	}
	if state == "" {
		f.logger.Warn("oauth callback without state parameter")
		return nil, ErrMissingState
	}

	// The callback is a fresh request with no session association of its
	// own; the state token is the only link back to the session that
	// started the flow. Peek the claimed owner, then let the consuming
	// validation be the single authoritative redemption. A racer may win
	// the peek but still loses the redemption.
	sessionID, ok := f.registry.PeekStateOwner(state)
	if !ok {
		f.logger.Error("oauth state not found or expired")
		return nil, ErrInvalidState
	}

	if !f.registry.ValidateAndConsumeState(state, sessionID) {
		f.logger.Error("oauth state redemption failed", "session_id", sessionID)
		return nil, ErrInvalidState
	}

	// Publish the resolved session for the rest of this request.
	ctx = WithSessionID(ctx, sessionID)

	exchangeCtx, cancel := context.WithTimeout(ctx, f.exchangeTimeout)
	defer cancel()

	cred, err := f.exchanger.ExchangeCode(exchangeCtx, code)
	if err != nil {
		f.logger.Error("token exchange failed", "session_id", sessionID, "error", err)
		return nil, ExchangeFailedError(err)
	}

	f.registry.BindCredential(sessionID, cred)
	f.logger.Info("oauth flow completed",
		"session_id", sessionID, "user_id", cred.UserID)

	return &CallbackResult{SessionID: sessionID, UserID: cred.UserID}, nil
}
