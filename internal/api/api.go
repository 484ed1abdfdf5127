package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PaintKaro/LeadPipe/internal/messaging"
	"github.com/PaintKaro/LeadPipe/internal/store"
)

// DefaultShutdownTimeout bounds graceful HTTP shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Server exposes the LeadPipe HTTP API: a chat turn endpoint that drives the
// same pipeline as the messaging transports, plus lead and measurement
// resources and the Twilio inbound webhook.
type Server struct {
	session    *messaging.SessionHandler
	msgService messaging.Service
	store      store.Store
	twilio     *messaging.TwilioService

	httpServer *http.Server
}

// Opts holds configuration options for the API server.
type Opts struct {
	// Twilio is the Twilio messaging service whose webhook handler should be
	// mounted. Optional; nil when the WhatsApp transport is used.
	Twilio *messaging.TwilioService
}

// Option configures API server options.
type Option func(*Opts)

// WithTwilioService mounts the Twilio inbound webhook on the server.
func WithTwilioService(svc *messaging.TwilioService) Option {
	return func(o *Opts) { o.Twilio = svc }
}

// NewServer creates an API server around the session handler and store.
func NewServer(session *messaging.SessionHandler, msgService messaging.Service, st store.Store, options ...Option) *Server {
	var opts Opts
	for _, opt := range options {
		opt(&opts)
	}
	return &Server{
		session:    session,
		msgService: msgService,
		store:      st,
		twilio:     opts.Twilio,
	}
}

// Handler builds the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/turn", s.turnHandler)
	mux.HandleFunc("/stepflow", s.stepFlowHandler)
	mux.HandleFunc("/leads", s.leadsHandler)
	mux.HandleFunc("/leads/", s.leadHandler)
	mux.HandleFunc("/measurements", s.measurementsHandler)
	if s.twilio != nil {
		mux.HandleFunc("/webhooks/twilio", s.twilio.TwilioWebhookHandler)
	}
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: LeadPipe API listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server shutdown failed: %w", err)
		}
		return nil
	}
}
