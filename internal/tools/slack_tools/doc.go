// Package slack_tools registers the Slack MCP tools: channel history,
// thread replies, message search, workspace directory lookups, and the
// OAuth URL tool that starts per-session authentication.
//
// Every tool except slack_get_oauth_url requires a Slack credential
// bound to the calling session; unauthenticated calls get an error that
// walks the user through the OAuth flow.
package slack_tools
