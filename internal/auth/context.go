package auth

import "context"

// contextKey is the type for context keys in this package.
type contextKey string

// sessionIDContextKey carries the active session id through a request's
// dynamic extent. It is set once at request entry (and again at OAuth
// callback entry, once the state lookup has resolved a session) and read by
// any code that needs to know which session's credential to use, without
// threading the id through every call.
const sessionIDContextKey contextKey = "slack_session_id"

// WithSessionID returns a context carrying the given session id. The value
// is scoped to the derived context, so concurrently handled requests are
// isolated from each other and the association disappears with the request
// on every exit path.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext returns the session id for the current request, if
// one was bound at request entry.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
