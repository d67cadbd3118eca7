package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestInstrumentedToolHandler(t *testing.T) {
	t.Run("calls handler when no metrics configured", func(t *testing.T) {
		sc, _ := newTestServerContext(t)

		called := false
		handler := InstrumentedToolHandler("test_tool", sc,
			func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				called = true
				return mcp.NewToolResultText("ok"), nil
			})

		result, err := handler(context.Background(), mcp.CallToolRequest{})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if !called {
			t.Error("expected wrapped handler to be called")
		}
		if result.IsError {
			t.Error("expected success result")
		}
	})
}

func TestRecordSlackCall(t *testing.T) {
	t.Run("no metrics configured", func(t *testing.T) {
		sc, _ := newTestServerContext(t)

		// Must not panic when instrumentation is disabled.
		RecordSlackCall(context.Background(), sc, "conversations.history", time.Now(), nil)
		RecordSlackCall(context.Background(), sc, "conversations.history", time.Now(), errors.New("boom"))
	})
}
