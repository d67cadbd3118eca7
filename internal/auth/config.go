package auth

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// SlackAuthorizeURL is Slack's OAuth v2 authorization endpoint.
const SlackAuthorizeURL = "https://slack.com/oauth/v2/authorize"

// SlackTokenURL is Slack's OAuth v2 token endpoint (oauth.v2.access).
const SlackTokenURL = "https://slack.com/api/oauth.v2.access"

// DefaultUserScopes are the Slack user scopes requested during
// authorization. The server acts on behalf of the authenticated user, so
// these are user scopes (Slack's user_scope parameter), not bot scopes.
var DefaultUserScopes = []string{
	"channels:history",
	"channels:read",
	"groups:history",
	"groups:read",
	"im:history",
	"im:read",
	"mpim:history",
	"mpim:read",
	"search:read",
	"users:read",
}

// Config holds the Slack OAuth application settings. It is read-only after
// startup; every request sees the same configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	UserScopes   []string
}

// LoadConfigFromEnv builds a Config from the environment. RedirectURI is
// derived from the server's public base URL when SLACK_REDIRECT_URI is not
// set explicitly.
func LoadConfigFromEnv(baseURL string) *Config {
	cfg := &Config{
		ClientID:     os.Getenv("SLACK_CLIENT_ID"),
		ClientSecret: os.Getenv("SLACK_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("SLACK_REDIRECT_URI"),
		UserScopes:   DefaultUserScopes,
	}
	if scopes := os.Getenv("SLACK_USER_SCOPES"); scopes != "" {
		cfg.UserScopes = splitScopes(scopes)
	}
	if cfg.RedirectURI == "" && baseURL != "" {
		cfg.RedirectURI = strings.TrimSuffix(baseURL, "/") + "/oauth2callback"
	}
	return cfg
}

// IsConfigured reports whether the provider client credentials are present.
// URL issuance is gated on this.
func (c *Config) IsConfigured() bool {
	return c != nil && c.ClientID != "" && c.ClientSecret != ""
}

// AuthorizationURL composes the Slack authorization endpoint URL carrying
// the given state token and the configured user scopes.
func (c *Config) AuthorizationURL(state string) string {
	oc := c.oauth2Config()
	// Slack expects user scopes in the user_scope parameter; the standard
	// scope parameter is reserved for bot scopes.
	return oc.AuthCodeURL(state,
		oauth2.SetAuthURLParam("user_scope", strings.Join(c.UserScopes, ",")))
}

// Validate reports configuration problems worth failing startup for.
// Missing credentials are allowed (the server runs with OAuth disabled),
// but a half-configured provider is not.
func (c *Config) Validate() error {
	if c.ClientID == "" && c.ClientSecret == "" {
		return nil
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("incomplete Slack OAuth config: both SLACK_CLIENT_ID and SLACK_CLIENT_SECRET must be set")
	}
	if c.RedirectURI == "" {
		return fmt.Errorf("incomplete Slack OAuth config: redirect URI could not be determined, set SLACK_REDIRECT_URI")
	}
	return nil
}

func (c *Config) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  SlackAuthorizeURL,
			TokenURL: SlackTokenURL,
		},
	}
}

func splitScopes(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
