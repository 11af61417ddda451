// Package server exposes the responder over HTTP.
//
//	GET  /health        {"status":"ok"}
//	POST /ask           {"message": "...", "history": ["..."]} -> {"response": Reply}
//	GET  /suggestions   {"suggestions": ["..."]} (POST accepted too)
//	                    ?stage=beginner|mid-career|advanced picks a question bank
//
// Every route is also mounted under /api.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"asha/internal/logging"
	"asha/internal/responder"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Answerer produces replies. *responder.Responder implements it.
type Answerer interface {
	GenerateResponse(ctx context.Context, message string, history []string) (responder.Reply, error)
	Fallback() string
}

// Options configures the server.
type Options struct {
	Addr         string
	AllowOrigins []string
	Suggestions  []string
	// StageSuggestions is keyed by normalized stage name, e.g. "mid-career".
	StageSuggestions map[string][]string
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
}

// AskRequest is the /ask body.
type AskRequest struct {
	Message string   `json:"message"`
	History []string `json:"history"`
}

// AskResponse is the /ask reply.
type AskResponse struct {
	Response responder.Reply `json:"response"`
	Error    string          `json:"error,omitempty"`
}

// SuggestionsResponse is the /suggestions reply.
type SuggestionsResponse struct {
	Stage       string   `json:"stage,omitempty"`
	Suggestions []string `json:"suggestions"`
}

// Server is the HTTP API.
type Server struct {
	answerer Answerer
	opts     Options
	engine   *gin.Engine
	http     *http.Server
}

// New builds the gin engine and routes.
func New(answerer Answerer, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = []string{"*"}
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{answerer: answerer, opts: opts}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.register(&engine.RouterGroup)
	s.register(engine.Group("/api"))

	s.engine = engine
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) register(r *gin.RouterGroup) {
	r.GET("/health", s.health)
	r.POST("/ask", s.ask)
	r.GET("/suggestions", s.suggestions)
	r.POST("/suggestions", s.suggestions)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logging.Server("Listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Server("Shutting down (timeout %s)", s.opts.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Server("Server stopped")
	return nil
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) suggestions(c *gin.Context) {
	raw := c.Query("stage")
	if raw == "" {
		c.JSON(http.StatusOK, SuggestionsResponse{Suggestions: s.opts.Suggestions})
		return
	}

	stage := NormalizeStage(raw)
	qs, ok := s.opts.StageSuggestions[stage]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unknown career stage %q, expected one of: %s", raw, strings.Join(s.stages(), ", ")),
		})
		return
	}
	c.JSON(http.StatusOK, SuggestionsResponse{Stage: stage, Suggestions: qs})
}

func (s *Server) stages() []string {
	out := make([]string, 0, len(s.opts.StageSuggestions))
	for stage := range s.opts.StageSuggestions {
		out = append(out, stage)
	}
	sort.Strings(out)
	return out
}

// NormalizeStage maps "Mid Career" or "MID-CAREER" to "mid-career".
func NormalizeStage(stage string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(stage, "-", " "))), "-")
}

func (s *Server) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	logging.ServerDebug("ask [%s]: %d history lines", c.GetString(requestIDKey), len(req.History))

	reply, err := s.answerer.GenerateResponse(ctx, req.Message, req.History)
	if errors.Is(err, responder.ErrEmptyMessage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logging.Get(logging.CategoryServer).Error("ask [%s] failed: %v", c.GetString(requestIDKey), err)
		c.JSON(http.StatusInternalServerError, AskResponse{
			Response: responder.Reply{Conversation: s.answerer.Fallback()},
			Error:    "failed to generate a response",
		})
		return
	}

	c.JSON(http.StatusOK, AskResponse{Response: reply})
}
