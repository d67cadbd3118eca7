// Package auth implements session-scoped Slack OAuth for the MCP server.
//
// Each long-lived client connection maps to a session. A caller requests an
// authorization URL (carrying a one-time CSRF state token bound to its
// session), authorizes with Slack, and the callback exchanges the code for
// a user token which is bound to the originating session. Tool handlers
// resolve "the current session's credential" through the request context
// and the registry; the token itself is never returned to the client.
//
// The registry is the only shared mutable state. State tokens are
// redeemable exactly once: validation and deletion happen in the same
// critical section, and consumption precedes the token exchange so a
// failed exchange cannot leave a replayable token.
package auth
