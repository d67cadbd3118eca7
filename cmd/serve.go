package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/slackmcp/internal/auth"
	"github.com/teemow/slackmcp/internal/instrumentation"
	"github.com/teemow/slackmcp/internal/logging"
	"github.com/teemow/slackmcp/internal/server"
	"github.com/teemow/slackmcp/internal/slack"
	"github.com/teemow/slackmcp/internal/tools/slack_tools"
)

// ServeConfig holds the settings collected from flags and environment for
// the serve command.
type ServeConfig struct {
	Debug             bool
	Transport         string
	HTTPAddr          string
	BaseURL           string
	SlackClientID     string
	SlackClientSecret string
	DisableStreaming  bool
	StateTTL          time.Duration
	SessionTimeout    time.Duration
	Metrics           MetricsConfig
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode         bool
		transport         string
		httpAddr          string
		baseURL           string
		slackClientID     string
		slackClientSecret string
		disableStreaming  bool
		stateTTL          time.Duration
		sessionTimeout    time.Duration
		metricsEnabled    bool
		metricsAddr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server providing Slack
workspace tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

OAuth Configuration:
  Each connected session authenticates with its own Slack user. Provide the
  Slack OAuth application credentials via:
    --slack-client-id and --slack-client-secret flags
    OR SLACK_CLIENT_ID and SLACK_CLIENT_SECRET env vars
  Without credentials the server starts, but tools that need Slack access
  return authentication guidance instead of data.

  Base URL (required for deployed instances, HTTP transport only):
    --base-url https://your-domain.com OR SLACK_EXTERNAL_URL env var
    Auto-detected for localhost (development only)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := ServeConfig{
				Debug:             debugMode,
				Transport:         transport,
				HTTPAddr:          httpAddr,
				BaseURL:           baseURL,
				SlackClientID:     slackClientID,
				SlackClientSecret: slackClientSecret,
				DisableStreaming:  disableStreaming,
				StateTTL:          stateTTL,
				SessionTimeout:    sessionTimeout,
				Metrics: MetricsConfig{
					Enabled: metricsEnabled,
					Addr:    metricsAddr,
				},
			}
			loadServeEnvVars(cmd, &config)
			return runServe(config)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8001", "HTTP server address (for streamable-http transport). Can also use SLACK_MCP_PORT env var.")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL for OAuth callbacks (HTTP transport only). Required for deployed instances. Can also use SLACK_EXTERNAL_URL env var. Example: https://mcp.example.com")
	cmd.Flags().StringVar(&slackClientID, "slack-client-id", "", "Slack OAuth Client ID. Can also use SLACK_CLIENT_ID env var.")
	cmd.Flags().StringVar(&slackClientSecret, "slack-client-secret", "", "Slack OAuth Client Secret. Can also use SLACK_CLIENT_SECRET env var.")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().DurationVar(&stateTTL, "state-ttl", auth.DefaultStateTTL, "How long an issued OAuth state token stays valid")
	cmd.Flags().DurationVar(&sessionTimeout, "session-timeout", auth.DefaultSessionTimeout, "How long an idle session is kept before its credentials are discarded")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnvVars fills in config values from environment variables for
// flags the user did not set explicitly.
func loadServeEnvVars(cmd *cobra.Command, config *ServeConfig) {
	if !cmd.Flags().Changed("http-addr") {
		if port := os.Getenv("SLACK_MCP_PORT"); port != "" {
			config.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
		}
	}
	if !cmd.Flags().Changed("base-url") && config.BaseURL == "" {
		config.BaseURL = os.Getenv("SLACK_EXTERNAL_URL")
	}
	if config.SlackClientID == "" {
		config.SlackClientID = os.Getenv("SLACK_CLIENT_ID")
	}
	if config.SlackClientSecret == "" {
		config.SlackClientSecret = os.Getenv("SLACK_CLIENT_SECRET")
	}
	if !cmd.Flags().Changed("metrics-enabled") {
		if os.Getenv("METRICS_ENABLED") == "false" {
			config.Metrics.Enabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Metrics.Addr = addr
		}
	}
}

// resolveBaseURL determines the public base URL for OAuth callbacks. An
// explicit value wins; otherwise SLACK_MCP_BASE_URI plus the listen port is
// used, falling back to localhost auto-detection for development.
func resolveBaseURL(config ServeConfig) string {
	if config.BaseURL != "" {
		return strings.TrimSuffix(config.BaseURL, "/")
	}

	addr := config.HTTPAddr
	port := addr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		port = addr[idx+1:]
	}

	if base := os.Getenv("SLACK_MCP_BASE_URI"); base != "" {
		return strings.TrimSuffix(base, "/") + ":" + port
	}

	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func runServe(config ServeConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.Setup(config.Debug)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			if config.Transport != "stdio" {
				log.Printf("Error during instrumentation shutdown: %v", err)
			}
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if config.Transport != "stdio" && config.Metrics.Enabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    config.Metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			log.Printf("Metrics server started on %s", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	baseURL := resolveBaseURL(config)

	// OAuth configuration: flags take precedence over the environment
	oauthConfig := auth.LoadConfigFromEnv(baseURL)
	if config.SlackClientID != "" {
		oauthConfig.ClientID = config.SlackClientID
	}
	if config.SlackClientSecret != "" {
		oauthConfig.ClientSecret = config.SlackClientSecret
	}
	if err := oauthConfig.Validate(); err != nil {
		return err
	}

	registryOpts := []auth.RegistryOption{
		auth.WithStateTTL(config.StateTTL),
		auth.WithSessionTimeout(config.SessionTimeout),
		auth.WithLogger(logger),
	}
	if provider.Enabled() {
		metrics := provider.Metrics()
		registryOpts = append(registryOpts, auth.WithSessionObserver(
			func() { metrics.SessionStarted(context.Background()) },
			func() { metrics.SessionEnded(context.Background()) },
		))
	}
	registry := auth.NewRegistry(registryOpts...)
	exchanger := slack.NewExchanger(oauthConfig, slack.WithExchangerLogger(logger))
	flow := auth.NewFlow(oauthConfig, registry, exchanger, auth.WithFlowLogger(logger))

	serverContextOpts := []server.ServerContextOption{
		server.WithServerLogger(logger),
	}
	if provider.Enabled() {
		serverContextOpts = append(serverContextOpts, server.WithMetrics(provider.Metrics()))
	}
	serverContext := server.NewServerContext(shutdownCtx, registry, flow, serverContextOpts...)
	defer func() {
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}
		if err := serverContext.Shutdown(); err != nil && config.Transport != "stdio" {
			log.Printf("Error during server context shutdown: %v", err)
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("slackmcp", version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	switch config.Transport {
	case "stdio":
		return runStdioServer(mcpSrv, serverContext)
	case "streamable-http":
		return runStreamableHTTPServer(mcpSrv, serverContext, config, oauthConfig, baseURL, shutdownCtx)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", config.Transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		err := mcpserver.ServeStdio(mcpSrv,
			mcpserver.WithStdioContextFunc(serverContext.StdioContext))
		if err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools
// Extracted to avoid duplication in serve.go
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Slack",
			register: func() error {
				return slack_tools.RegisterSlackTools(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runStreamableHTTPServer(mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, config ServeConfig, oauthConfig *auth.Config, baseURL string, ctx context.Context) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, serverContext, baseURL,
		server.WithDisableStreaming(config.DisableStreaming),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	printStartupBanner(config, oauthConfig, baseURL)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(config.HTTPAddr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		fmt.Println("HTTP server stopped normally")
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}

func printStartupBanner(config ServeConfig, oauthConfig *auth.Config, baseURL string) {
	fmt.Printf("🚀 Starting slackmcp MCP server with %s transport...\n", config.Transport)
	fmt.Printf("📡 Server URL: %s%s\n", baseURL, "/mcp")
	fmt.Printf("🔐 OAuth callback: %s%s\n", baseURL, server.OAuthCallbackPath)
	fmt.Printf("❤️  Health endpoints: /health, /healthz, /readyz\n")
	if config.Metrics.Enabled {
		fmt.Printf("📊 Metrics endpoint: %s/metrics\n", config.Metrics.Addr)
	}

	fmt.Println("\n🔧 Available tools:")
	fmt.Println("   - slack_get_channel_messages")
	fmt.Println("   - slack_get_thread_replies")
	fmt.Println("   - slack_search_messages")
	fmt.Println("   - slack_get_users")
	fmt.Println("   - slack_get_channels")
	fmt.Println("   - slack_get_oauth_url")

	if oauthConfig.IsConfigured() {
		fmt.Println("\n✅ Slack OAuth: CONFIGURED")
		fmt.Println("   Each session authenticates with its own Slack user.")
		fmt.Println("   Clients call slack_get_oauth_url to begin authentication.")
	} else {
		fmt.Println("\n⚠️  Slack OAuth: NOT CONFIGURED")
		fmt.Println("   Set SLACK_CLIENT_ID and SLACK_CLIENT_SECRET to enable authentication.")
		fmt.Println("   Tools will return authentication guidance until then.")
	}
}
