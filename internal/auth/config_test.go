package auth

import (
	"net/url"
	"strings"
	"testing"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SLACK_CLIENT_ID", "env-id")
	t.Setenv("SLACK_CLIENT_SECRET", "env-secret")
	t.Setenv("SLACK_REDIRECT_URI", "")
	t.Setenv("SLACK_USER_SCOPES", "")

	cfg := LoadConfigFromEnv("http://localhost:8001/")

	if cfg.ClientID != "env-id" || cfg.ClientSecret != "env-secret" {
		t.Errorf("credentials not read from env: %+v", cfg)
	}
	if cfg.RedirectURI != "http://localhost:8001/oauth2callback" {
		t.Errorf("RedirectURI = %q, want derived callback", cfg.RedirectURI)
	}
	if len(cfg.UserScopes) != len(DefaultUserScopes) {
		t.Errorf("expected default scopes, got %v", cfg.UserScopes)
	}
}

func TestLoadConfigFromEnvExplicitRedirect(t *testing.T) {
	t.Setenv("SLACK_CLIENT_ID", "env-id")
	t.Setenv("SLACK_CLIENT_SECRET", "env-secret")
	t.Setenv("SLACK_REDIRECT_URI", "https://mcp.example.com/oauth2callback")
	t.Setenv("SLACK_USER_SCOPES", "search:read, channels:read")

	cfg := LoadConfigFromEnv("http://localhost:8001")

	if cfg.RedirectURI != "https://mcp.example.com/oauth2callback" {
		t.Errorf("explicit redirect URI should win, got %q", cfg.RedirectURI)
	}
	if len(cfg.UserScopes) != 2 || cfg.UserScopes[0] != "search:read" {
		t.Errorf("scope override not applied: %v", cfg.UserScopes)
	}
}

func TestIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{"nil config", nil, false},
		{"empty", &Config{}, false},
		{"id only", &Config{ClientID: "id"}, false},
		{"secret only", &Config{ClientSecret: "secret"}, false},
		{"both", &Config{ClientID: "id", ClientSecret: "secret"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.IsConfigured(); got != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"unconfigured is fine", &Config{}, false},
		{"fully configured", &Config{ClientID: "id", ClientSecret: "secret", RedirectURI: "http://localhost:8001/oauth2callback"}, false},
		{"id without secret", &Config{ClientID: "id"}, true},
		{"secret without id", &Config{ClientSecret: "secret"}, true},
		{"configured without redirect", &Config{ClientID: "id", ClientSecret: "secret"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthorizationURL(t *testing.T) {
	cfg := &Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8001/oauth2callback",
		UserScopes:   []string{"search:read", "users:read"},
	}

	rawURL := cfg.AuthorizationURL("state-token")
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parsing URL: %v", err)
	}

	if !strings.HasPrefix(rawURL, SlackAuthorizeURL) {
		t.Errorf("URL should target the Slack authorize endpoint, got %q", rawURL)
	}

	q := u.Query()
	if q.Get("state") != "state-token" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("redirect_uri") != cfg.RedirectURI {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("user_scope") != "search:read,users:read" {
		t.Errorf("user_scope = %q", q.Get("user_scope"))
	}
}
