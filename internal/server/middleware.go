package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/slackmcp/internal/auth"
	"github.com/teemow/slackmcp/internal/logging"
)

// SessionIDHeader is the MCP session header set by streamable HTTP clients.
const SessionIDHeader = "Mcp-Session-Id"

// resolveSessionID derives a session ID from an HTTP request. The MCP
// session header wins; otherwise the Authorization header is hashed so
// the same client keeps the same session across requests; otherwise a
// fresh ID is generated and the session lives only as long as the client
// keeps presenting it.
func resolveSessionID(r *http.Request) string {
	if id := r.Header.Get(SessionIDHeader); id != "" {
		return id
	}
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		return hashSessionID(authHeader)
	}
	return uuid.NewString()
}

// hashSessionID creates a stable session ID from an auth token.
func hashSessionID(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// SessionContextFunc returns an HTTP context function for the streamable
// HTTP transport. It resolves the session ID for each request, registers
// the session, and places the ID on the request context where tool
// handlers and the OAuth flow find it.
func (sc *ServerContext) SessionContextFunc() mcpserver.HTTPContextFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		sessionID := resolveSessionID(r)

		sc.registry.CreateOrGet(sessionID)
		sc.registry.Touch(sessionID)

		sc.logger.Debug("resolved session",
			logging.KeySessionHash, logging.AnonymizeSessionID(sessionID),
		)
		return auth.WithSessionID(ctx, sessionID)
	}
}

// StdioSessionID is the implicit session used by the stdio transport,
// which serves exactly one client.
const StdioSessionID = "stdio"

// StdioContext returns a context carrying the implicit stdio session.
func (sc *ServerContext) StdioContext(ctx context.Context) context.Context {
	sc.registry.CreateOrGet(StdioSessionID)
	return auth.WithSessionID(ctx, StdioSessionID)
}
