package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/slackmcp/internal/auth"
	"github.com/teemow/slackmcp/internal/instrumentation"
	"github.com/teemow/slackmcp/internal/logging"
)

// OAuthCallbackPath is where Slack redirects the browser after the user
// approves or denies the authorization request.
const OAuthCallbackPath = "/oauth2callback"

// HTTPServer serves the MCP streamable HTTP transport alongside the
// OAuth callback endpoint and health probes.
type HTTPServer struct {
	mcpServer        *mcpserver.MCPServer
	serverCtx        *ServerContext
	httpServer       *http.Server
	health           *HealthChecker
	logger           *slog.Logger
	baseURL          string
	disableStreaming bool
}

// HTTPServerOption configures an HTTPServer.
type HTTPServerOption func(*HTTPServer)

// WithDisableStreaming disables streaming responses on the MCP endpoint.
func WithDisableStreaming(disable bool) HTTPServerOption {
	return func(s *HTTPServer) {
		s.disableStreaming = disable
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(logger *slog.Logger) HTTPServerOption {
	return func(s *HTTPServer) {
		s.logger = logger
	}
}

// NewHTTPServer creates an HTTP server for the MCP server. baseURL is the
// externally reachable URL of this server; it must use HTTPS unless it
// points at a loopback address.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, baseURL string, opts ...HTTPServerOption) (*HTTPServer, error) {
	if err := validateHTTPSRequirement(baseURL); err != nil {
		return nil, err
	}

	s := &HTTPServer{
		mcpServer: mcpServer,
		serverCtx: sc,
		health:    NewHealthChecker(sc),
		logger:    slog.Default(),
		baseURL:   baseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Health returns the health checker so callers can toggle readiness.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Start starts the HTTP server in a blocking manner.
func (s *HTTPServer) Start(addr string) error {
	mux := http.NewServeMux()

	streamableOpts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithHTTPContextFunc(s.serverCtx.SessionContextFunc()),
	}
	if s.disableStreaming {
		streamableOpts = append(streamableOpts, mcpserver.WithDisableStreaming(true))
	}
	streamableServer := mcpserver.NewStreamableHTTPServer(s.mcpServer, streamableOpts...)

	mux.Handle("/mcp", s.requestLogMiddleware(streamableServer))
	mux.Handle(OAuthCallbackPath, s.requestLogMiddleware(http.HandlerFunc(s.handleOAuthCallback)))

	// Load balancer health check, separate from the Kubernetes probes.
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	s.health.RegisterHealthEndpoints(mux)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", addr, "base_url", s.baseURL)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

var callbackSuccessTmpl = template.Must(template.New("success").Parse(`<html>
	<body>
		<h1>&#9989; Authentication Successful!</h1>
		<p>You have been authenticated as user: <strong>{{.UserID}}</strong></p>
		<p>Your session is now authorized to access Slack.</p>
		<p>You can close this window.</p>
	</body>
</html>
`))

var callbackErrorTmpl = template.Must(template.New("error").Parse(`<html>
	<body>
		<h1>{{.Heading}}</h1>
		<p>Error: {{.Message}}</p>
{{- range .Hints}}
		<p>{{.}}</p>
{{- end}}
		<p>You can close this window.</p>
	</body>
</html>
`))

type callbackErrorPage struct {
	Heading string
	Message string
	Hints   []string
}

// handleOAuthCallback receives the redirect from Slack, validates the
// state token, exchanges the code for a user token, and binds it to the
// session that initiated the flow.
func (s *HTTPServer) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic in OAuth callback", "panic", fmt.Sprint(rec))
			s.writeCallbackError(w, http.StatusInternalServerError, callbackErrorPage{
				Heading: "Authentication Failed",
				Message: "An unexpected error occurred.",
				Hints:   []string{"Please try again."},
			})
		}
	}()

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	providerError := query.Get("error")

	result, flowErr := s.serverCtx.Flow().HandleCallback(r.Context(), code, state, providerError)
	if flowErr != nil {
		s.serverCtx.Metrics().RecordOAuthAttempt(r.Context(), instrumentation.OAuthResultFailure)
		s.writeCallbackError(w, flowErr.Status, callbackPageForError(flowErr))
		return
	}

	s.serverCtx.Metrics().RecordOAuthAttempt(r.Context(), instrumentation.OAuthResultSuccess)
	// A fresh credential replaces whatever client the session had.
	s.serverCtx.InvalidateSession(result.SessionID)

	s.logger.Info("OAuth flow completed",
		logging.KeySessionHash, logging.AnonymizeSessionID(result.SessionID),
		logging.KeyUserID, result.UserID,
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := callbackSuccessTmpl.Execute(w, struct{ UserID string }{UserID: result.UserID}); err != nil {
		s.logger.Error("failed to render callback page", logging.KeyError, err.Error())
	}
}

// callbackPageForError maps a flow error to the page shown in the
// user's browser.
func callbackPageForError(flowErr *auth.FlowError) callbackErrorPage {
	page := callbackErrorPage{
		Heading: "Authentication Failed",
		Message: flowErr.Description,
	}
	switch flowErr.Kind {
	case auth.KindProviderDenied, auth.KindMissingCode:
		page.Heading = "OAuth Error"
	case auth.KindMissingState:
		page.Hints = []string{"This may indicate a CSRF attack attempt."}
	case auth.KindInvalidOrExpiredState:
		page.Hints = []string{
			"This may indicate a CSRF attack attempt or an expired authorization request.",
			"Please generate a new OAuth URL using the slack_get_oauth_url tool.",
		}
	}
	return page
}

func (s *HTTPServer) writeCallbackError(w http.ResponseWriter, status int, page callbackErrorPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := callbackErrorTmpl.Execute(w, page); err != nil {
		s.logger.Error("failed to render callback page", logging.KeyError, err.Error())
	}
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLogMiddleware logs each request with its status and duration.
func (s *HTTPServer) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		s.logger.Debug("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			logging.KeyDuration, time.Since(start).String(),
		)
	})
}

// validateHTTPSRequirement ensures the externally reachable URL uses
// HTTPS. HTTP is allowed only for loopback addresses during development.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	case "https":
	default:
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
