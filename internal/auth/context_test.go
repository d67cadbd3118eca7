package auth

import (
	"context"
	"testing"
)

func TestSessionIDRoundTrip(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess-1")

	id, ok := SessionIDFromContext(ctx)
	if !ok || id != "sess-1" {
		t.Errorf("SessionIDFromContext = (%q, %v), want (sess-1, true)", id, ok)
	}
}

func TestSessionIDAbsent(t *testing.T) {
	if _, ok := SessionIDFromContext(context.Background()); ok {
		t.Error("bare context should carry no session id")
	}
}

func TestSessionIDEmptyTreatedAsAbsent(t *testing.T) {
	ctx := WithSessionID(context.Background(), "")
	if _, ok := SessionIDFromContext(ctx); ok {
		t.Error("empty session id should report absent")
	}
}

func TestSessionIDScopedToDerivedContext(t *testing.T) {
	parent := context.Background()
	child := WithSessionID(parent, "sess-1")
	grandchild := WithSessionID(child, "sess-2")

	if id, _ := SessionIDFromContext(grandchild); id != "sess-2" {
		t.Errorf("innermost binding should win, got %q", id)
	}
	if id, _ := SessionIDFromContext(child); id != "sess-1" {
		t.Errorf("child binding unchanged, got %q", id)
	}
	if _, ok := SessionIDFromContext(parent); ok {
		t.Error("parent context must stay unaffected")
	}
}
