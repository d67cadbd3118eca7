package cmd

import (
	"testing"
	"time"
)

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		config   ServeConfig
		baseURI  string
		expected string
	}{
		{
			name:     "explicit base URL wins",
			config:   ServeConfig{BaseURL: "https://mcp.example.com", HTTPAddr: ":8001"},
			baseURI:  "http://internal",
			expected: "https://mcp.example.com",
		},
		{
			name:     "explicit base URL trailing slash trimmed",
			config:   ServeConfig{BaseURL: "https://mcp.example.com/", HTTPAddr: ":8001"},
			expected: "https://mcp.example.com",
		},
		{
			name:     "base URI env plus port",
			config:   ServeConfig{HTTPAddr: ":8001"},
			baseURI:  "http://dev.example.com",
			expected: "http://dev.example.com:8001",
		},
		{
			name:     "port-only addr falls back to localhost",
			config:   ServeConfig{HTTPAddr: ":8001"},
			expected: "http://localhost:8001",
		},
		{
			name:     "host and port addr used as-is",
			config:   ServeConfig{HTTPAddr: "127.0.0.1:9000"},
			expected: "http://127.0.0.1:9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.baseURI != "" {
				t.Setenv("SLACK_MCP_BASE_URI", tt.baseURI)
			} else {
				t.Setenv("SLACK_MCP_BASE_URI", "")
			}

			result := resolveBaseURL(tt.config)
			if result != tt.expected {
				t.Errorf("resolveBaseURL() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestLoadServeEnvVars(t *testing.T) {
	t.Setenv("SLACK_MCP_PORT", "9001")
	t.Setenv("SLACK_EXTERNAL_URL", "https://slack-mcp.example.com")
	t.Setenv("SLACK_CLIENT_ID", "env-client-id")
	t.Setenv("SLACK_CLIENT_SECRET", "env-client-secret")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("METRICS_ADDR", ":9191")

	cmd := newServeCmd()
	config := ServeConfig{
		HTTPAddr: ":8001",
		Metrics:  MetricsConfig{Enabled: true, Addr: ":9090"},
	}
	loadServeEnvVars(cmd, &config)

	if config.HTTPAddr != ":9001" {
		t.Errorf("HTTPAddr = %q, want :9001", config.HTTPAddr)
	}
	if config.BaseURL != "https://slack-mcp.example.com" {
		t.Errorf("BaseURL = %q, want https://slack-mcp.example.com", config.BaseURL)
	}
	if config.SlackClientID != "env-client-id" {
		t.Errorf("SlackClientID = %q, want env-client-id", config.SlackClientID)
	}
	if config.SlackClientSecret != "env-client-secret" {
		t.Errorf("SlackClientSecret = %q, want env-client-secret", config.SlackClientSecret)
	}
	if config.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false from METRICS_ENABLED")
	}
	if config.Metrics.Addr != ":9191" {
		t.Errorf("Metrics.Addr = %q, want :9191", config.Metrics.Addr)
	}
}

func TestLoadServeEnvVarsFlagPrecedence(t *testing.T) {
	t.Setenv("SLACK_CLIENT_ID", "env-client-id")
	t.Setenv("SLACK_MCP_PORT", "9001")

	cmd := newServeCmd()
	if err := cmd.Flags().Set("http-addr", ":7777"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}

	config := ServeConfig{
		HTTPAddr:      ":7777",
		SlackClientID: "flag-client-id",
		StateTTL:      5 * time.Minute,
	}
	loadServeEnvVars(cmd, &config)

	if config.HTTPAddr != ":7777" {
		t.Errorf("HTTPAddr = %q, want flag value :7777", config.HTTPAddr)
	}
	if config.SlackClientID != "flag-client-id" {
		t.Errorf("SlackClientID = %q, want flag value", config.SlackClientID)
	}
}

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"slack_get_channel_messages", "Slack Tools"},
		{"slack_search_messages", "Slack Tools"},
		{"slack_get_oauth_url", "Authentication Tools"},
		{"unrelated_tool", "Other"},
	}

	for _, tt := range tests {
		if got := getCategoryFromToolName(tt.name); got != tt.expected {
			t.Errorf("getCategoryFromToolName(%q) = %q, want %q", tt.name, got, tt.expected)
		}
	}
}
