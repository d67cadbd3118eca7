package slack

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	absoluteDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	relativeDateRe = regexp.MustCompile(`^(\d+)([dwmy])$`)
	userIDRe       = regexp.MustCompile(`^[UW][A-Z0-9]{8,}$`)
	channelIDRe    = regexp.MustCompile(`^[CGD][A-Z0-9]{8,}$`)
)

// buildSearchQuery composes a Slack search query string from the free-text
// query plus the structured filters.
func buildSearchQuery(req SearchRequest, now time.Time) (string, error) {
	parts := []string{}
	if q := strings.TrimSpace(req.Query); q != "" {
		parts = append(parts, q)
	}

	if req.FromUser != "" {
		parts = append(parts, "from:"+searchUserRef(req.FromUser))
	}
	if req.InChannel != "" {
		parts = append(parts, "in:"+searchChannelRef(req.InChannel))
	}
	if req.AfterDate != "" {
		d, err := normalizeSearchDate(req.AfterDate, now)
		if err != nil {
			return "", fmt.Errorf("invalid after_date: %w", err)
		}
		parts = append(parts, "after:"+d)
	}
	if req.BeforeDate != "" {
		d, err := normalizeSearchDate(req.BeforeDate, now)
		if err != nil {
			return "", fmt.Errorf("invalid before_date: %w", err)
		}
		parts = append(parts, "before:"+d)
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("search requires a query or at least one filter")
	}
	return strings.Join(parts, " "), nil
}

// normalizeSearchDate accepts YYYY-MM-DD or a relative form (7d, 2w, 1m,
// 1y) and returns the YYYY-MM-DD value Slack's search modifiers expect.
func normalizeSearchDate(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	if absoluteDateRe.MatchString(s) {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return "", fmt.Errorf("not a valid date: %s", s)
		}
		return s, nil
	}

	m := relativeDateRe.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return "", fmt.Errorf("expected YYYY-MM-DD or relative form like 7d, 2w, 1m, 1y: %s", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", fmt.Errorf("invalid relative date: %s", s)
	}

	var t time.Time
	switch m[2] {
	case "d":
		t = now.AddDate(0, 0, -n)
	case "w":
		t = now.AddDate(0, 0, -7*n)
	case "m":
		t = now.AddDate(0, -n, 0)
	case "y":
		t = now.AddDate(-n, 0, 0)
	}
	return t.Format("2006-01-02"), nil
}

// searchUserRef formats a from: filter value. Raw user ids become mention
// syntax; @names pass through.
func searchUserRef(u string) string {
	if userIDRe.MatchString(u) {
		return "<@" + u + ">"
	}
	if !strings.HasPrefix(u, "@") {
		return "@" + u
	}
	return u
}

// searchChannelRef formats an in: filter value.
func searchChannelRef(ch string) string {
	if channelIDRe.MatchString(ch) {
		return "<#" + ch + ">"
	}
	if !strings.HasPrefix(ch, "#") {
		return "#" + ch
	}
	return ch
}
