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

// usersListResult is the list-mode wire shape of slack_get_users.
type usersListResult struct {
	OK         bool         `json:"ok"`
	Users      []slack.User `json:"users"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// userResult is the get-mode wire shape of slack_get_users.
type userResult struct {
	OK   bool       `json:"ok"`
	User slack.User `json:"user"`
}

func handleGetUsers(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	client, _, errResult := common.SlackClientFromContext(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	// Dual mode: a user_id switches from listing to a single profile.
	if userID := stringArg(args, "user_id"); userID != "" {
		start := time.Now()
		user, err := client.GetUser(ctx, userID)
		common.RecordSlackCall(ctx, sc, "users.info", start, err)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get user: %v", err)), nil
		}
		return jsonResult(userResult{OK: true, User: *user})
	}

	start := time.Now()
	page, err := client.ListUsers(ctx, intArg(args, "limit"), stringArg(args, "cursor"))
	common.RecordSlackCall(ctx, sc, "users.list", start, err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list users: %v", err)), nil
	}
	return jsonResult(usersListResult{
		OK:         true,
		Users:      page.Users,
		NextCursor: page.NextCursor,
	})
}

// channelsListResult is the list-mode wire shape of slack_get_channels.
type channelsListResult struct {
	OK         bool            `json:"ok"`
	Channels   []slack.Channel `json:"channels"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// channelResult is the get-mode wire shape of slack_get_channels.
type channelResult struct {
	OK      bool          `json:"ok"`
	Channel slack.Channel `json:"channel"`
	Members []string      `json:"members,omitempty"`
}

func handleGetChannels(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	client, _, errResult := common.SlackClientFromContext(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	// Dual mode: a channel_id switches from listing to a single channel.
	if channelID := stringArg(args, "channel_id"); channelID != "" {
		start := time.Now()
		info, err := client.GetChannel(ctx, channelID, boolArg(args, "include_members"))
		common.RecordSlackCall(ctx, sc, "conversations.info", start, err)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get channel: %v", err)), nil
		}
		return jsonResult(channelResult{
			OK:      true,
			Channel: info.Channel,
			Members: info.Members,
		})
	}

	start := time.Now()
	page, err := client.ListChannels(ctx, stringArg(args, "types"), intArg(args, "limit"), stringArg(args, "cursor"))
	common.RecordSlackCall(ctx, sc, "conversations.list", start, err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list channels: %v", err)), nil
	}
	return jsonResult(channelsListResult{
		OK:         true,
		Channels:   page.Channels,
		NextCursor: page.NextCursor,
	})
}
