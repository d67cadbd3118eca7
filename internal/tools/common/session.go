package common

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/slackmcp/internal/auth"
	"github.com/teemow/slackmcp/internal/server"
	"github.com/teemow/slackmcp/internal/slack"
)

// notAuthenticatedMsg tells the caller how to start the OAuth flow.
const notAuthenticatedMsg = `Not authenticated with Slack for this session.

To authorize access:
1. Call the slack_get_oauth_url tool to get an authorization URL
2. Visit the URL in your browser and approve access to your workspace
3. Retry this tool once the browser shows "Authentication Successful"

Each session authenticates independently; tokens are never shared between sessions.`

// SlackClientFromContext resolves the session on ctx to its Slack client.
// When the session has no bound credential yet, it returns a tool error
// result explaining how to authenticate; callers return that result as-is.
func SlackClientFromContext(ctx context.Context, sc *server.ServerContext) (*slack.Client, string, *mcp.CallToolResult) {
	sessionID, ok := auth.SessionIDFromContext(ctx)
	if !ok {
		return nil, "", mcp.NewToolResultError("No session ID found for this request.")
	}

	client := sc.SlackClientForSession(sessionID)
	if client == nil {
		return nil, sessionID, mcp.NewToolResultError(notAuthenticatedMsg)
	}
	return client, sessionID, nil
}
