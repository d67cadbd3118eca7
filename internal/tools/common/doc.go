// Package common provides shared helpers for MCP tool packages:
// resolving the per-session Slack client and wrapping handlers with
// invocation metrics.
package common
