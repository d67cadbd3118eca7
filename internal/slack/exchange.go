package slack

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/teemow/slackmcp/internal/auth"
)

// oauthV2Func matches slack-go's oauth.v2.access helper so tests can
// substitute a fake exchange.
type oauthV2Func func(ctx context.Context, client *http.Client, clientID, clientSecret, code, redirectURI string) (*slackapi.OAuthV2Response, error)

// Exchanger implements auth.TokenExchanger against Slack's oauth.v2.access
// endpoint. The flow requests user scopes, so the credential comes from the
// authed_user block of the response, not the bot token.
type Exchanger struct {
	config     *auth.Config
	httpClient *http.Client
	exchange   oauthV2Func
	logger     *slog.Logger
}

// ExchangerOption configures an Exchanger.
type ExchangerOption func(*Exchanger)

// WithExchangeFunc substitutes the oauth.v2.access call. Used by tests.
func WithExchangeFunc(fn oauthV2Func) ExchangerOption {
	return func(e *Exchanger) { e.exchange = fn }
}

// WithExchangerHTTPClient overrides the HTTP client for the exchange call.
func WithExchangerHTTPClient(hc *http.Client) ExchangerOption {
	return func(e *Exchanger) { e.httpClient = hc }
}

// WithExchangerLogger sets the exchanger's logger.
func WithExchangerLogger(logger *slog.Logger) ExchangerOption {
	return func(e *Exchanger) { e.logger = logger }
}

// NewExchanger creates the production token exchanger.
func NewExchanger(config *auth.Config, opts ...ExchangerOption) *Exchanger {
	e := &Exchanger{
		config:     config,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.exchange == nil {
		e.exchange = func(ctx context.Context, client *http.Client, clientID, clientSecret, code, redirectURI string) (*slackapi.OAuthV2Response, error) {
			return slackapi.GetOAuthV2ResponseContext(ctx, client, clientID, clientSecret, code, redirectURI)
		}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// ExchangeCode redeems an authorization code for a Slack user token. The
// returned credential never appears in logs or responses.
func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (auth.Credential, error) {
	resp, err := e.exchange(ctx, e.httpClient,
		e.config.ClientID, e.config.ClientSecret, code, e.config.RedirectURI)
	if err != nil {
		return auth.Credential{}, fmt.Errorf("oauth.v2.access failed: %w", err)
	}

	user := resp.AuthedUser
	if user.AccessToken == "" {
		return auth.Credential{}, fmt.Errorf("oauth response contained no user token")
	}
	if user.ID == "" {
		return auth.Credential{}, fmt.Errorf("oauth response contained no user id")
	}

	e.logger.Info("exchanged authorization code",
		"user_id", user.ID,
		"team", resp.Team.Name)

	return auth.Credential{
		AccessToken: user.AccessToken,
		UserID:      user.ID,
		Scopes:      splitScopeList(user.Scope),
		ObtainedAt:  time.Now(),
	}, nil
}

func splitScopeList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
