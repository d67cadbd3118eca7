// Package slack wraps the Slack Web API for the MCP tools. A Client is
// created per bound credential and cached per session; all calls act as the
// authenticated user. The package also implements the code-for-token
// exchange against Slack's oauth.v2.access endpoint.
package slack
