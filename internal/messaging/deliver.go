package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/metrics"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"golang.org/x/time/rate"
)

// DefaultReplyPause separates consecutive replies of one invocation.
const DefaultReplyPause = 1 * time.Second

// DelivererOpts holds configuration for a Deliverer.
type DelivererOpts struct {
	Pause   time.Duration
	Metrics *metrics.Metrics
}

// DelivererOption configures a Deliverer.
type DelivererOption func(*DelivererOpts)

// WithReplyPause sets the pause between replies. Zero disables pacing.
func WithReplyPause(d time.Duration) DelivererOption {
	return func(o *DelivererOpts) { o.Pause = d }
}

// WithMetrics counts every delivery attempt.
func WithMetrics(m *metrics.Metrics) DelivererOption {
	return func(o *DelivererOpts) { o.Metrics = m }
}

// Deliverer sends the ordered replies of one invocation. Read receipts and
// reactions go out immediately; text, buttons and lists are paced. A failed
// send is logged and counted, and the remaining messages still go out.
type Deliverer struct {
	sender  Sender
	pause   time.Duration
	metrics *metrics.Metrics
}

// NewDeliverer wraps sender.
func NewDeliverer(sender Sender, opts ...DelivererOption) *Deliverer {
	cfg := DelivererOpts{Pause: DefaultReplyPause}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Deliverer{sender: sender, pause: cfg.Pause, metrics: cfg.Metrics}
}

// Deliver sends msgs to user in order. It returns an error when ctx ends, or
// would end during a pause, before every message was sent. Delivery failures
// are never returned.
func (d *Deliverer) Deliver(ctx context.Context, user string, msgs []models.Message) error {
	limit := rate.Inf
	if d.pause > 0 {
		limit = rate.Every(d.pause)
	}
	limiter := rate.NewLimiter(limit, 1)

	sent := 0
	for _, m := range msgs {
		if paced(m.Kind) {
			if err := limiter.Wait(ctx); err != nil {
				slog.Warn("Deliverer.Deliver: canceled before all replies were sent", "user", user, "sent", sent, "pending", len(msgs)-sent, "error", err)
				return err
			}
		}
		err := d.sender.Send(ctx, user, m)
		d.metrics.ObserveOutbound(string(m.Kind), err)
		if err != nil {
			slog.Error("Deliverer.Deliver: send failed", "user", user, "kind", m.Kind, "error", err)
		}
		sent++
	}
	slog.Debug("Deliverer.Deliver succeeded", "user", user, "messages", len(msgs))
	return nil
}

func paced(k models.MessageKind) bool {
	return k != models.MessageKindRead && k != models.MessageKindReaction
}
