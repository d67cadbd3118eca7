package slack

// Message is one channel or thread message.
type Message struct {
	User        string `json:"user,omitempty"`
	Text        string `json:"text"`
	Timestamp   string `json:"ts"`
	ThreadTS    string `json:"thread_ts,omitempty"`
	ReplyCount  int    `json:"reply_count,omitempty"`
	Permalink   string `json:"permalink,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
	ChannelName string `json:"channel_name,omitempty"`
}

// MessagesPage is a page of messages with a continuation cursor.
type MessagesPage struct {
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"has_more"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// SearchRequest describes a message search with optional filters. Dates
// accept YYYY-MM-DD or relative forms like "7d", "2w", "1m", "1y".
type SearchRequest struct {
	Query      string
	Count      int
	Page       int
	FromUser   string
	InChannel  string
	AfterDate  string
	BeforeDate string
	SortBy     string // "timestamp" or "relevance"
	SortOrder  string // "asc" or "desc"
}

// SearchPage is one page of search results.
type SearchPage struct {
	Query    string    `json:"query"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
	Messages []Message `json:"messages"`
}

// User is a workspace member profile.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name,omitempty"`
	Email    string `json:"email,omitempty"`
	IsBot    bool   `json:"is_bot,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	Deleted  bool   `json:"deleted,omitempty"`
	TimeZone string `json:"tz,omitempty"`
}

// UsersPage is a page of workspace members.
type UsersPage struct {
	Users      []User `json:"users"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Channel is a conversation (public/private channel, DM, or group DM).
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Purpose    string `json:"purpose,omitempty"`
	IsPrivate  bool   `json:"is_private,omitempty"`
	IsIM       bool   `json:"is_im,omitempty"`
	IsArchived bool   `json:"is_archived,omitempty"`
	NumMembers int    `json:"num_members,omitempty"`
}

// ChannelsPage is a page of conversations.
type ChannelsPage struct {
	Channels   []Channel `json:"channels"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// ChannelInfo is a single conversation, optionally with its member ids.
type ChannelInfo struct {
	Channel Channel  `json:"channel"`
	Members []string `json:"members,omitempty"`
}
