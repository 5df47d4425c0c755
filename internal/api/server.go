// Package api provides the HTTP surface of MedicAI: the WhatsApp Cloud API
// webhook, the optional Twilio webhook, health and metrics endpoints and a
// small read-only operations API. It also runs the inbound pipeline shared
// by every transport: de-duplication, dispatch and paced delivery.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/metrics"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Constants for server configuration
const (
	DefaultAddr            = ":5000"
	DefaultReadTimeout     = 15 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	healthCheckTimeout     = 5 * time.Second
)

// Handler turns one inbound event into the ordered messages to deliver.
type Handler interface {
	Handle(ctx context.Context, in models.InboundMessage) []models.Message
}

// Deliverer sends the messages produced for one inbound event.
type Deliverer interface {
	Deliver(ctx context.Context, user string, msgs []models.Message) error
}

// Repo is the part of the store the HTTP layer reads.
type Repo interface {
	store.DedupRepo
	GetMedication(ctx context.Context, name string) (models.Medication, error)
	ListPickups(ctx context.Context, userID string) ([]models.Pickup, error)
	Ping(ctx context.Context) error
}

// Opts holds configuration options for the Server.
type Opts struct {
	Addr          string
	VerifyToken   string
	TwilioWebhook http.HandlerFunc
	Gatherer      prometheus.Gatherer
	Metrics       *metrics.Metrics
}

// Option configures the Server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the token Meta sends when verifying the webhook.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithTwilioWebhook mounts h on POST /twilio/webhook.
func WithTwilioWebhook(h http.HandlerFunc) Option {
	return func(o *Opts) { o.TwilioWebhook = h }
}

// WithGatherer serves g on /metrics instead of the default gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *Opts) { o.Gatherer = g }
}

// WithMetrics counts inbound events.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Opts) { o.Metrics = m }
}

// Server is the HTTP server and inbound pipeline.
type Server struct {
	handler     Handler
	deliverer   Deliverer
	repo        Repo
	verifyToken string
	metrics     *metrics.Metrics
	validate    *validator.Validate
	router      chi.Router
	httpServer  *http.Server
	inflight    sync.WaitGroup

	mu      sync.Mutex
	closing bool // set by Shutdown; Consume admits no new events
}

// NewServer builds the router. The server does not listen until Start.
func NewServer(handler Handler, deliverer Deliverer, repo Repo, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.VerifyToken == "" {
		slog.Warn("Server: no verify token configured; webhook verification will always fail")
	}

	s := &Server{
		handler:     handler,
		deliverer:   deliverer,
		repo:        repo,
		verifyToken: cfg.VerifyToken,
		metrics:     cfg.Metrics,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/bienvenido", s.welcomeHandler)
	r.Get("/webhook", s.verifyWebhookHandler)
	r.Post("/webhook", s.receiveWebhookHandler)
	if cfg.TwilioWebhook != nil {
		r.Post("/twilio/webhook", cfg.TwilioWebhook)
	}
	r.Get("/healthz", s.healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Get("/stock/{name}", s.stockHandler)
		r.Get("/pickups/{user}", s.pickupsHandler)
	})
	s.router = r

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: DefaultReadTimeout,
	}
	return s
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves HTTP until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	slog.Info("Server.Start: listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight requests and
// consumed events to finish, or for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("Server.Shutdown: gave up waiting for inbound events", "error", ctx.Err())
	}
	slog.Info("Server.Shutdown: stopped")
	return err
}

// Process runs one inbound event through de-duplication, dispatch and
// delivery. A repeated message id is dropped. A failing de-duplication
// table does not block the user: the event is processed anyway.
func (s *Server) Process(ctx context.Context, in models.InboundMessage) error {
	if err := s.validate.Struct(in); err != nil {
		s.metrics.ObserveInbound(string(in.Channel), "invalid")
		return fmt.Errorf("invalid inbound message: %w", err)
	}

	fresh, err := s.repo.RecordInbound(ctx, in.MessageID, in.UserID)
	if err != nil {
		slog.Error("Server.Process: dedup record failed, processing anyway", "message_id", in.MessageID, "error", err)
		fresh = true
	}
	if !fresh {
		slog.Info("Server.Process: duplicate inbound message dropped", "message_id", in.MessageID, "user", in.UserID)
		s.metrics.ObserveInbound(string(in.Channel), "duplicate")
		return nil
	}

	msgs := s.handler.Handle(ctx, in)
	if err := s.deliverer.Deliver(ctx, in.UserID, msgs); err != nil {
		slog.Warn("Server.Process: delivery interrupted", "message_id", in.MessageID, "error", err)
	}

	if err := s.repo.MarkProcessed(ctx, in.MessageID); err != nil {
		slog.Error("Server.Process: mark processed failed", "message_id", in.MessageID, "error", err)
	}
	s.metrics.ObserveInbound(string(in.Channel), "processed")
	slog.Debug("Server.Process succeeded", "message_id", in.MessageID, "user", in.UserID, "replies", len(msgs))
	return nil
}

// Consume processes events from a push-style backend until ch is closed or
// ctx ends. Each event is handled in its own goroutine.
func (s *Server) Consume(ctx context.Context, ch <-chan models.InboundMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-ch:
			if !ok {
				slog.Debug("Server.Consume: inbound channel closed")
				return
			}
			if !s.admit(ctx) {
				slog.Debug("Server.Consume: shutting down, event dropped", "message_id", in.MessageID)
				return
			}
			go func() {
				defer s.inflight.Done()
				if err := s.Process(ctx, in); err != nil {
					slog.ErrorContext(ctx, "Server.Consume: event rejected", "error", err)
				}
			}()
		}
	}
}

// admit registers one in-flight event. It refuses once ctx is done or
// Shutdown has begun, so no Add races the final Wait.
func (s *Server) admit(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing || ctx.Err() != nil {
		return false
	}
	s.inflight.Add(1)
	return true
}
