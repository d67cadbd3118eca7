package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"
)

const (
	// DefaultPageLimit is the page size used when a tool does not ask for
	// a specific limit.
	DefaultPageLimit = 100

	// MaxPageLimit caps page sizes the way the Slack Web API does.
	MaxPageLimit = 1000

	defaultHTTPTimeout = 30 * time.Second
)

// Client wraps the Slack Web API for one user token.
type Client struct {
	api        *slackapi.Client
	token      string
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIURL overrides the Slack API base URL. Used by tests.
func WithAPIURL(u string) ClientOption {
	return func(c *Client) { c.apiURL = u }
}

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientLogger sets the client's logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Slack client acting as the user the token belongs to.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:      token,
		apiURL:     slackapi.APIURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.api = slackapi.New(token,
		slackapi.OptionAPIURL(c.apiURL),
		slackapi.OptionHTTPClient(c.httpClient),
	)
	return c
}

// ClampLimit normalizes a requested page size into [1, MaxPageLimit],
// substituting DefaultPageLimit for zero or negative values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return limit
	}
}

// GetChannelMessages fetches a page of channel history. The channel may be
// given as an id or as a #name.
func (c *Client) GetChannelMessages(ctx context.Context, channel string, limit int, cursor string) (*MessagesPage, error) {
	channelID, err := c.ResolveChannelID(ctx, channel)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.GetConversationHistoryContext(ctx, &slackapi.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     ClampLimit(limit),
		Cursor:    cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get channel history: %w", err)
	}

	page := &MessagesPage{
		Messages:   make([]Message, 0, len(resp.Messages)),
		HasMore:    resp.HasMore,
		NextCursor: resp.ResponseMetaData.NextCursor,
	}
	for _, m := range resp.Messages {
		page.Messages = append(page.Messages, convertMessage(m, channelID))
	}
	return page, nil
}

// GetThreadReplies fetches a page of replies for the thread rooted at
// threadTS.
func (c *Client) GetThreadReplies(ctx context.Context, channel, threadTS string, limit int, cursor string) (*MessagesPage, error) {
	channelID, err := c.ResolveChannelID(ctx, channel)
	if err != nil {
		return nil, err
	}

	msgs, hasMore, nextCursor, err := c.api.GetConversationRepliesContext(ctx, &slackapi.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Limit:     ClampLimit(limit),
		Cursor:    cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get thread replies: %w", err)
	}

	page := &MessagesPage{
		Messages:   make([]Message, 0, len(msgs)),
		HasMore:    hasMore,
		NextCursor: nextCursor,
	}
	for _, m := range msgs {
		page.Messages = append(page.Messages, convertMessage(m, channelID))
	}
	return page, nil
}

// SearchMessages runs a workspace search composed from the request's query
// and filters.
func (c *Client) SearchMessages(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	query, err := buildSearchQuery(req, time.Now())
	if err != nil {
		return nil, err
	}

	params := slackapi.NewSearchParameters()
	if req.Count > 0 {
		if req.Count > 100 {
			req.Count = 100
		}
		params.Count = req.Count
	}
	if req.Page > 0 {
		params.Page = req.Page
	}
	// Slack's search API sorts by "score" or "timestamp".
	if req.SortBy == "timestamp" {
		params.Sort = "timestamp"
	} else {
		params.Sort = "score"
	}
	if req.SortOrder == "asc" {
		params.SortDirection = "asc"
	} else {
		params.SortDirection = "desc"
	}

	results, err := c.api.SearchMessagesContext(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	page := &SearchPage{
		Query:    query,
		Total:    results.Total,
		Page:     results.Pagination.Page,
		Pages:    results.Pagination.PageCount,
		Messages: make([]Message, 0, len(results.Matches)),
	}
	for _, m := range results.Matches {
		page.Messages = append(page.Messages, Message{
			User:        m.User,
			Text:        m.Text,
			Timestamp:   m.Timestamp,
			Permalink:   m.Permalink,
			ChannelID:   m.Channel.ID,
			ChannelName: m.Channel.Name,
		})
	}
	return page, nil
}

// usersListResponse is the wire shape of users.list. slack-go's helper for
// this endpoint paginates internally and does not expose the cursor, so the
// call is made directly to keep the tool's cursor semantics.
type usersListResponse struct {
	OK               bool            `json:"ok"`
	Err              string          `json:"error"`
	Members          []slackapi.User `json:"members"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// ListUsers fetches one page of the workspace member roster.
func (c *Client) ListUsers(ctx context.Context, limit int, cursor string) (*UsersPage, error) {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(ClampLimit(limit)))
	if cursor != "" {
		values.Set("cursor", cursor)
	}

	var resp usersListResponse
	if err := c.callAPI(ctx, "users.list", values, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("users.list failed: %s", resp.Err)
	}

	page := &UsersPage{
		Users:      make([]User, 0, len(resp.Members)),
		NextCursor: resp.ResponseMetadata.NextCursor,
	}
	for _, u := range resp.Members {
		page.Users = append(page.Users, convertUser(u))
	}
	return page, nil
}

// GetUser fetches one member's profile.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	user := convertUser(*u)
	return &user, nil
}

// ListChannels fetches one page of conversations. types is a
// comma-separated Slack conversation type filter; empty means public
// channels only.
func (c *Client) ListChannels(ctx context.Context, types string, limit int, cursor string) (*ChannelsPage, error) {
	typeList := []string{"public_channel"}
	if types != "" {
		typeList = splitTypes(types)
	}

	channels, nextCursor, err := c.api.GetConversationsContext(ctx, &slackapi.GetConversationsParameters{
		Types:  typeList,
		Limit:  ClampLimit(limit),
		Cursor: cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	page := &ChannelsPage{
		Channels:   make([]Channel, 0, len(channels)),
		NextCursor: nextCursor,
	}
	for _, ch := range channels {
		page.Channels = append(page.Channels, convertChannel(ch))
	}
	return page, nil
}

// GetChannel fetches one conversation, optionally including its member
// ids.
func (c *Client) GetChannel(ctx context.Context, channel string, includeMembers bool) (*ChannelInfo, error) {
	channelID, err := c.ResolveChannelID(ctx, channel)
	if err != nil {
		return nil, err
	}

	ch, err := c.api.GetConversationInfoContext(ctx, &slackapi.GetConversationInfoInput{
		ChannelID:         channelID,
		IncludeNumMembers: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}

	info := &ChannelInfo{Channel: convertChannel(*ch)}
	if includeMembers {
		members, _, err := c.api.GetUsersInConversationContext(ctx, &slackapi.GetUsersInConversationParameters{
			ChannelID: channelID,
			Limit:     MaxPageLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get channel members: %w", err)
		}
		info.Members = members
	}
	return info, nil
}

// ResolveChannelID translates a #name reference into a channel id. Plain
// ids pass through untouched.
func (c *Client) ResolveChannelID(ctx context.Context, channel string) (string, error) {
	if channel == "" {
		return "", fmt.Errorf("channel is required")
	}
	if !strings.HasPrefix(channel, "#") {
		return channel, nil
	}

	name := strings.TrimPrefix(channel, "#")
	cursor := ""
	for {
		channels, nextCursor, err := c.api.GetConversationsContext(ctx, &slackapi.GetConversationsParameters{
			Types:  []string{"public_channel", "private_channel"},
			Limit:  MaxPageLimit,
			Cursor: cursor,
		})
		if err != nil {
			return "", fmt.Errorf("failed to resolve channel %s: %w", channel, err)
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if nextCursor == "" {
			return "", fmt.Errorf("channel not found: %s", channel)
		}
		cursor = nextCursor
	}
}

// callAPI performs a direct Slack Web API GET with the client's token.
func (c *Client) callAPI(ctx context.Context, method string, values url.Values, out interface{}) error {
	endpoint := strings.TrimSuffix(c.apiURL, "/") + "/" + method
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", method, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}

func convertMessage(m slackapi.Message, channelID string) Message {
	return Message{
		User:       m.User,
		Text:       m.Text,
		Timestamp:  m.Timestamp,
		ThreadTS:   m.ThreadTimestamp,
		ReplyCount: m.ReplyCount,
		ChannelID:  channelID,
	}
}

func convertUser(u slackapi.User) User {
	return User{
		ID:       u.ID,
		Name:     u.Name,
		RealName: u.RealName,
		Email:    u.Profile.Email,
		IsBot:    u.IsBot,
		IsAdmin:  u.IsAdmin,
		Deleted:  u.Deleted,
		TimeZone: u.TZ,
	}
}

func convertChannel(ch slackapi.Channel) Channel {
	return Channel{
		ID:         ch.ID,
		Name:       ch.Name,
		Topic:      ch.Topic.Value,
		Purpose:    ch.Purpose.Value,
		IsPrivate:  ch.IsPrivate,
		IsIM:       ch.IsIM,
		IsArchived: ch.IsArchived,
		NumMembers: ch.NumMembers,
	}
}

func splitTypes(types string) []string {
	parts := strings.Split(types, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"public_channel"}
	}
	return out
}
