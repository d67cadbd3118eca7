package slack

import (
	"testing"
	"time"
)

var searchNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		req      SearchRequest
		expected string
		wantErr  bool
	}{
		{
			name:     "plain query",
			req:      SearchRequest{Query: "deploy failed"},
			expected: "deploy failed",
		},
		{
			name:     "query trimmed",
			req:      SearchRequest{Query: "  deploy  "},
			expected: "deploy",
		},
		{
			name:     "from user name",
			req:      SearchRequest{Query: "deploy", FromUser: "alice"},
			expected: "deploy from:@alice",
		},
		{
			name:     "from user id becomes mention",
			req:      SearchRequest{Query: "deploy", FromUser: "U12345678"},
			expected: "deploy from:<@U12345678>",
		},
		{
			name:     "in channel name",
			req:      SearchRequest{Query: "deploy", InChannel: "ops"},
			expected: "deploy in:#ops",
		},
		{
			name:     "in channel id becomes reference",
			req:      SearchRequest{Query: "deploy", InChannel: "C12345678"},
			expected: "deploy in:<#C12345678>",
		},
		{
			name:     "absolute dates",
			req:      SearchRequest{Query: "deploy", AfterDate: "2024-01-01", BeforeDate: "2024-02-01"},
			expected: "deploy after:2024-01-01 before:2024-02-01",
		},
		{
			name:     "relative after date",
			req:      SearchRequest{Query: "deploy", AfterDate: "7d"},
			expected: "deploy after:2024-06-08",
		},
		{
			name:     "filters only",
			req:      SearchRequest{FromUser: "alice", InChannel: "#ops"},
			expected: "from:@alice in:#ops",
		},
		{
			name:    "empty request",
			req:     SearchRequest{},
			wantErr: true,
		},
		{
			name:    "bad date",
			req:     SearchRequest{Query: "deploy", AfterDate: "not-a-date"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildSearchQuery(tt.req, searchNow)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildSearchQuery: %v", err)
			}
			if got != tt.expected {
				t.Errorf("query = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNormalizeSearchDate(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		wantErr  bool
	}{
		{"2024-06-01", "2024-06-01", false},
		{" 2024-06-01 ", "2024-06-01", false},
		{"7d", "2024-06-08", false},
		{"2w", "2024-06-01", false},
		{"1m", "2024-05-15", false},
		{"1y", "2023-06-15", false},
		{"3D", "2024-06-12", false},
		{"2024-13-40", "", true},
		{"yesterday", "", true},
		{"d7", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := normalizeSearchDate(tt.in, searchNow)
		if tt.wantErr {
			if err == nil {
				t.Errorf("normalizeSearchDate(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeSearchDate(%q): %v", tt.in, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("normalizeSearchDate(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestSearchUserRef(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"alice", "@alice"},
		{"@alice", "@alice"},
		{"U12345678", "<@U12345678>"},
		{"W12345678", "<@W12345678>"},
		{"u12345678", "@u12345678"},
	}

	for _, tt := range tests {
		if got := searchUserRef(tt.in); got != tt.expected {
			t.Errorf("searchUserRef(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestSearchChannelRef(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"ops", "#ops"},
		{"#ops", "#ops"},
		{"C12345678", "<#C12345678>"},
		{"G12345678", "<#G12345678>"},
	}

	for _, tt := range tests {
		if got := searchChannelRef(tt.in); got != tt.expected {
			t.Errorf("searchChannelRef(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
