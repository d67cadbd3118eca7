package slack_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/slackmcp/internal/server"
	"github.com/teemow/slackmcp/internal/slack"
	"github.com/teemow/slackmcp/internal/tools/common"
)

// messagesResult is the wire shape of the message listing tools.
type messagesResult struct {
	OK         bool            `json:"ok"`
	Messages   []slack.Message `json:"messages"`
	HasMore    bool            `json:"has_more"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func handleGetChannelMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	channel := stringArg(args, "channel_id")
	if channel == "" {
		return mcp.NewToolResultError("channel_id is required"), nil
	}
	limit := intArg(args, "limit")
	cursor := stringArg(args, "cursor")

	client, _, errResult := common.SlackClientFromContext(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	start := time.Now()
	page, err := client.GetChannelMessages(ctx, channel, limit, cursor)
	common.RecordSlackCall(ctx, sc, "conversations.history", start, err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get channel messages: %v", err)), nil
	}

	return jsonResult(messagesResult{
		OK:         true,
		Messages:   page.Messages,
		HasMore:    page.HasMore,
		NextCursor: page.NextCursor,
	})
}

func handleGetThreadReplies(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	channel := stringArg(args, "channel_id")
	if channel == "" {
		return mcp.NewToolResultError("channel_id is required"), nil
	}
	threadTS := stringArg(args, "thread_ts")
	if threadTS == "" {
		return mcp.NewToolResultError("thread_ts is required"), nil
	}
	limit := intArg(args, "limit")
	cursor := stringArg(args, "cursor")

	client, _, errResult := common.SlackClientFromContext(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	start := time.Now()
	page, err := client.GetThreadReplies(ctx, channel, threadTS, limit, cursor)
	common.RecordSlackCall(ctx, sc, "conversations.replies", start, err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get thread replies: %v", err)), nil
	}

	return jsonResult(messagesResult{
		OK:         true,
		Messages:   page.Messages,
		HasMore:    page.HasMore,
		NextCursor: page.NextCursor,
	})
}
