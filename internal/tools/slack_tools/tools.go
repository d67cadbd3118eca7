package slack_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/slackmcp/internal/server"
	"github.com/teemow/slackmcp/internal/tools/common"
)

// RegisterSlackTools registers all Slack tools with the MCP server.
func RegisterSlackTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getChannelMessagesTool := mcp.NewTool("slack_get_channel_messages",
		mcp.WithDescription("Get messages from a Slack channel. Uses the authenticated user's credentials from the current session."),
		mcp.WithString("channel_id",
			mcp.Required(),
			mcp.Description("Channel ID or name (e.g., 'C1234567890' or '#general')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of messages to retrieve (default: 100, max: 1000)"),
		),
		mcp.WithString("cursor",
			mcp.Description("Pagination cursor from previous response (optional)"),
		),
	)
	s.AddTool(getChannelMessagesTool, common.InstrumentedToolHandler("slack_get_channel_messages", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetChannelMessages(ctx, request, sc)
		}))

	getThreadRepliesTool := mcp.NewTool("slack_get_thread_replies",
		mcp.WithDescription("Get replies from a Slack thread. Uses the authenticated user's credentials from the current session."),
		mcp.WithString("channel_id",
			mcp.Required(),
			mcp.Description("Channel ID or name where the thread exists"),
		),
		mcp.WithString("thread_ts",
			mcp.Required(),
			mcp.Description("Timestamp of the parent message (e.g., '1234567890.123456')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of replies to retrieve (default: 100, max: 1000)"),
		),
		mcp.WithString("cursor",
			mcp.Description("Pagination cursor from previous response (optional)"),
		),
	)
	s.AddTool(getThreadRepliesTool, common.InstrumentedToolHandler("slack_get_thread_replies", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetThreadReplies(ctx, request, sc)
		}))

	searchMessagesTool := mcp.NewTool("slack_search_messages",
		mcp.WithDescription("Search for messages across all Slack conversations with advanced filters. "+
			"Examples: search in last 7 days with after_date='7d'; "+
			"filter by sender with from_user='@john' and channel with in_channel='#team'."),
		mcp.WithString("query",
			mcp.Description("Search query string (can be empty if using only filters)"),
		),
		mcp.WithNumber("count",
			mcp.Description("Number of results per page (default: 20, max: 100)"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number for pagination (default: 1)"),
		),
		mcp.WithString("from_user",
			mcp.Description("Filter by user ID or username (e.g., 'U123ABC' or '@john')"),
		),
		mcp.WithString("in_channel",
			mcp.Description("Filter by channel ID or name (e.g., 'C123ABC' or '#general')"),
		),
		mcp.WithString("after_date",
			mcp.Description("Messages after this date (YYYY-MM-DD or relative like '7d', '2w', '1m', '1y')"),
		),
		mcp.WithString("before_date",
			mcp.Description("Messages before this date (YYYY-MM-DD or relative)"),
		),
		mcp.WithString("sort_by",
			mcp.Description("Sort results by 'timestamp' or 'relevance' (default: 'relevance')"),
		),
		mcp.WithString("sort_order",
			mcp.Description("Sort order 'asc' or 'desc' (default: 'desc')"),
		),
	)
	s.AddTool(searchMessagesTool, common.InstrumentedToolHandler("slack_search_messages", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSearchMessages(ctx, request, sc)
		}))

	getUsersTool := mcp.NewTool("slack_get_users",
		mcp.WithDescription("Get users from the Slack workspace. Without user_id, lists all users with pagination; "+
			"with user_id, gets the profile of that specific user."),
		mcp.WithString("user_id",
			mcp.Description("Optional user ID. If provided, gets the specific user profile"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of users to retrieve when listing (default: 100, max: 1000)"),
		),
		mcp.WithString("cursor",
			mcp.Description("Pagination cursor from previous response (for listing mode)"),
		),
	)
	s.AddTool(getUsersTool, common.InstrumentedToolHandler("slack_get_users", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetUsers(ctx, request, sc)
		}))

	getChannelsTool := mcp.NewTool("slack_get_channels",
		mcp.WithDescription("Get channels from the Slack workspace. Without channel_id, lists channels with an "+
			"optional type filter (defaults to public channels); with channel_id, gets detailed info for that channel, "+
			"optionally including its members."),
		mcp.WithString("channel_id",
			mcp.Description("Optional channel ID. If provided, gets the specific channel info"),
		),
		mcp.WithString("types",
			mcp.Description("Filter by channel types when listing, e.g. 'public_channel,private_channel' or 'im,mpim'. Defaults to 'public_channel'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of channels to retrieve when listing (default: 100, max: 1000)"),
		),
		mcp.WithString("cursor",
			mcp.Description("Pagination cursor from previous response (for listing mode)"),
		),
		mcp.WithBoolean("include_members",
			mcp.Description("Include the member list when getting a specific channel (default: false)"),
		),
	)
	s.AddTool(getChannelsTool, common.InstrumentedToolHandler("slack_get_channels", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetChannels(ctx, request, sc)
		}))

	getOAuthURLTool := mcp.NewTool("slack_get_oauth_url",
		mcp.WithDescription("Get the OAuth authorization URL for the current session to authenticate with Slack."),
	)
	s.AddTool(getOAuthURLTool, common.InstrumentedToolHandler("slack_get_oauth_url", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetOAuthURL(ctx, request, sc)
		}))

	return nil
}

// jsonResult marshals v and wraps it in a text tool result.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringArg reads an optional string argument.
func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg reads an optional numeric argument; JSON numbers arrive as
// float64.
func intArg(args map[string]interface{}, key string) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return 0
}

// boolArg reads an optional boolean argument.
func boolArg(args map[string]interface{}, key string) bool {
	v, ok := args[key].(bool)
	return ok && v
}
