package slack_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/slackmcp/internal/server"
)

// oauthURLResult is the wire shape of slack_get_oauth_url.
type oauthURLResult struct {
	OK               bool   `json:"ok"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	Instructions     string `json:"instructions,omitempty"`
	Error            string `json:"error,omitempty"`
}

func handleGetOAuthURL(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	authURL, flowErr := sc.Flow().IssueURL(ctx)
	if flowErr != nil {
		return jsonResult(oauthURLResult{OK: false, Error: flowErr.Description})
	}

	return jsonResult(oauthURLResult{
		OK:               true,
		AuthorizationURL: authURL,
		Instructions: "Visit the authorization URL to authenticate. " +
			"After authorization, you'll receive a user_id to use with other tools.",
	})
}
