// SGR deep research server: exposes schema-guided research agents over an
// OpenAI-compatible chat completions API with SSE streaming.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sgrlabs/sgr-deep-research/pkg/api"
	"github.com/sgrlabs/sgr-deep-research/pkg/config"
	"github.com/sgrlabs/sgr-deep-research/pkg/session"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
	"github.com/sgrlabs/sgr-deep-research/pkg/version"
)

const shutdownTimeout = 5 * time.Second

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Parse command-line flags
	configFile := flag.String("config",
		getEnv("SGR_CONFIG_FILE", "config.yaml"),
		"Path to the configuration file")
	agentsFile := flag.String("agents",
		getEnv("SGR_AGENTS_FILE", "agents.yaml"),
		"Path to the agent definitions file")
	host := flag.String("host", "", "Host to listen on (overrides server.host)")
	port := flag.Int("port", 0, "Port to listen on (overrides server.port)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	// Load .env so config templating and SGR__ overrides see it
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment", "error", err)
	}

	slog.Info("Starting SGR deep research server",
		"version", version.Full(),
		"config_file", *configFile,
		"agents_file", *agentsFile)

	// 1. Load and validate configuration
	cfg, err := config.Initialize(*configFile, *agentsFile)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Register builtin tools
	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry)
	for _, name := range registry.Names() {
		slog.Info("Tool registered", "tool", name)
	}
	for _, name := range cfg.AgentNames() {
		slog.Info("Agent definition loaded", "definition", name)
	}

	// 3. Session registry and janitor
	sessions := session.NewManager()
	janitor := session.NewJanitor(sessions, cfg.Server.SessionTTLDuration(), 0)
	janitor.Start(context.Background())

	// 4. HTTP server (non-blocking)
	server := api.NewServer(cfg, sessions, api.NewFactory(registry))

	listenHost := cfg.Server.Host
	if *host != "" {
		listenHost = *host
	}
	listenPort := cfg.Server.Port
	if *port != 0 {
		listenPort = *port
	}
	addr := net.JoinHostPort(listenHost, strconv.Itoa(listenPort))

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	// 5. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 6. Graceful shutdown
	janitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
