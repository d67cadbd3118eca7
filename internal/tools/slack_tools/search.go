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

// searchResult is the wire shape of slack_search_messages.
type searchResult struct {
	OK       bool            `json:"ok"`
	Query    string          `json:"query"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
	Messages []slack.Message `json:"messages"`
}

func handleSearchMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req := slack.SearchRequest{
		Query:      stringArg(args, "query"),
		Count:      intArg(args, "count"),
		Page:       intArg(args, "page"),
		FromUser:   stringArg(args, "from_user"),
		InChannel:  stringArg(args, "in_channel"),
		AfterDate:  stringArg(args, "after_date"),
		BeforeDate: stringArg(args, "before_date"),
		SortBy:     stringArg(args, "sort_by"),
		SortOrder:  stringArg(args, "sort_order"),
	}
	if req.Count <= 0 {
		req.Count = 20
	}

	client, _, errResult := common.SlackClientFromContext(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	start := time.Now()
	page, err := client.SearchMessages(ctx, req)
	common.RecordSlackCall(ctx, sc, "search.messages", start, err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search messages: %v", err)), nil
	}

	return jsonResult(searchResult{
		OK:       true,
		Query:    page.Query,
		Total:    page.Total,
		Page:     page.Page,
		Pages:    page.Pages,
		Messages: page.Messages,
	})
}
