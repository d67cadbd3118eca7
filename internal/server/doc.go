// Package server wires the MCP server to its transports.
//
// The stdio transport serves a single implicit session. The
// streamable HTTP transport serves many concurrent sessions: a
// context function derives a stable session ID from each request and
// places it on the request context, where tool handlers and the OAuth
// flow pick it up. The HTTP server also hosts the OAuth redirect
// endpoint and health probes, while Prometheus metrics are exposed on
// a dedicated port.
package server
