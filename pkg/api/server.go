// Package api exposes the research agents over HTTP: an OpenAI-compatible
// chat completions endpoint that creates sessions and streams their
// progress as SSE, plus agent listing, state inspection and the
// clarification resume endpoint.
package api

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgrlabs/sgr-deep-research/pkg/config"
	"github.com/sgrlabs/sgr-deep-research/pkg/session"
)

// Server is the HTTP server. It owns no agent state: sessions live in the
// registry and agent construction is delegated to the factory.
type Server struct {
	cfg      *config.Config
	sessions *session.Manager
	factory  AgentFactory

	httpServer *http.Server
}

// NewServer creates an API server over the given configuration, session
// registry and agent factory.
func NewServer(cfg *config.Config, sessions *session.Manager, factory AgentFactory) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		factory:  factory,
	}
}

// Router builds the gin engine with all routes and middleware registered.
// Exposed so tests can drive handlers without a listening socket.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(corsAllowAll())

	engine.GET("/health", s.healthHandler)
	engine.GET("/v1/models", s.listModelsHandler)
	engine.POST("/v1/chat/completions", s.chatCompletionsHandler)
	engine.GET("/agents", s.listAgentsHandler)
	engine.GET("/agents/:id/state", s.agentStateHandler)
	engine.POST("/agents/:id/provide_clarification", s.provideClarificationHandler)

	return engine
}

// Start runs the HTTP server on addr. It blocks until the server stops and
// returns http.ErrServerClosed after a graceful Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener runs the HTTP server on an existing listener. Tests use
// it to bind a random port before starting.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler: s.Router(),
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the HTTP server. In-flight SSE streams are
// given until ctx expires to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
