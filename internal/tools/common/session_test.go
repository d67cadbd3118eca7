package common

import (
	"context"
	"strings"
	"testing"

	"github.com/teemow/slackmcp/internal/auth"
	"github.com/teemow/slackmcp/internal/server"
)

func newTestServerContext(t *testing.T) (*server.ServerContext, *auth.Registry) {
	t.Helper()

	registry := auth.NewRegistry()
	t.Cleanup(registry.Stop)

	config := &auth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/oauth2callback",
		UserScopes:   auth.DefaultUserScopes,
	}
	flow := auth.NewFlow(config, registry, nil)

	sc := server.NewServerContext(context.Background(), registry, flow)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, registry
}

func TestSlackClientFromContext(t *testing.T) {
	t.Run("no session on context", func(t *testing.T) {
		sc, _ := newTestServerContext(t)

		client, _, errResult := SlackClientFromContext(context.Background(), sc)
		if client != nil {
			t.Error("expected nil client")
		}
		if errResult == nil {
			t.Fatal("expected error result")
		}
	})

	t.Run("unauthenticated session points at oauth tool", func(t *testing.T) {
		sc, registry := newTestServerContext(t)
		registry.CreateOrGet("session-1")
		ctx := auth.WithSessionID(context.Background(), "session-1")

		client, sessionID, errResult := SlackClientFromContext(ctx, sc)
		if client != nil {
			t.Error("expected nil client without credential")
		}
		if sessionID != "session-1" {
			t.Errorf("sessionID = %q, want %q", sessionID, "session-1")
		}
		if errResult == nil {
			t.Fatal("expected error result")
		}
		text := toolResultText(t, errResult)
		if !strings.Contains(text, "slack_get_oauth_url") {
			t.Errorf("error should mention slack_get_oauth_url, got: %s", text)
		}
	})

	t.Run("bound session yields a client", func(t *testing.T) {
		sc, registry := newTestServerContext(t)
		registry.BindCredential("session-1", auth.Credential{
			AccessToken: "xoxp-test",
			UserID:      "U12345678",
		})
		ctx := auth.WithSessionID(context.Background(), "session-1")

		client, _, errResult := SlackClientFromContext(ctx, sc)
		if errResult != nil {
			t.Fatalf("unexpected error result: %v", toolResultText(t, errResult))
		}
		if client == nil {
			t.Fatal("expected a Slack client")
		}
	})
}
