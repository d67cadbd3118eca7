package common

import (
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

// toolResultText flattens the text content of a tool result.
func toolResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	var sb strings.Builder
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			sb.WriteString(textContent.Text)
		}
	}
	return sb.String()
}
