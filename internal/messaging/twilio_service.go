package messaging

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/twiliowhatsapp"
)

// emptyTwiML acknowledges a webhook without an inline reply.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// TwilioOpts holds configuration for the Twilio service webhook.
type TwilioOpts struct {
	// Validator checks webhook signatures; nil accepts every post.
	Validator *twiliowhatsapp.SignatureValidator
	// WebhookURL is the public URL Twilio posts to. When empty it is
	// rebuilt from the request.
	WebhookURL string
}

// TwilioOption configures a TwilioService.
type TwilioOption func(*TwilioOpts)

// WithSignatureValidator enables X-Twilio-Signature checks.
func WithSignatureValidator(v *twiliowhatsapp.SignatureValidator) TwilioOption {
	return func(o *TwilioOpts) { o.Validator = v }
}

// WithWebhookURL sets the public webhook URL used in signature checks.
func WithWebhookURL(url string) TwilioOption {
	return func(o *TwilioOpts) { o.WebhookURL = url }
}

// TwilioService implements the Service interface using Twilio API. Twilio
// WhatsApp has no buttons or lists, so interactive messages are rendered as
// numbered text; reactions and read receipts are not supported and skipped.
type TwilioService struct {
	client     twiliowhatsapp.TwilioWhatsAppSender // Could be real Twilio client or MockClient
	validator  *twiliowhatsapp.SignatureValidator
	webhookURL string
	options    *OptionMemory
	inbox      *inbox
}

var _ Service = (*TwilioService)(nil)

// NewTwilioService creates a new TwilioService.
func NewTwilioService(client twiliowhatsapp.TwilioWhatsAppSender, opts ...TwilioOption) *TwilioService {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TwilioService{
		client:     client,
		validator:  cfg.Validator,
		webhookURL: cfg.WebhookURL,
		options:    NewOptionMemory(DefaultOptionTTL),
		inbox:      newInbox(),
	}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp phone number.
// It removes all non-numeric characters and validates the result has at least 6 digits.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalPhone(strings.TrimPrefix(recipient, twiliowhatsapp.AddressPrefix))
}

// Start is a no-op for Twilio (inbound arrives through WebhookHandler)
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes the inbound channel and stops the service
func (s *TwilioService) Stop() error {
	s.inbox.close()
	return nil
}

func (s *TwilioService) Inbound() <-chan models.InboundMessage {
	return s.inbox.ch
}

// Send delivers m as text through Twilio.
func (s *TwilioService) Send(ctx context.Context, to string, m models.Message) error {
	if s.inbox.isStopped() {
		return ErrServiceStopped
	}
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService Send validation error", "error", err, "to", to)
		return err
	}
	if m.Kind == models.MessageKindRead || m.Kind == models.MessageKindReaction {
		slog.Debug("TwilioService skipping unsupported message kind", "to", canonicalTo, "kind", m.Kind)
		return nil
	}
	if err := s.client.SendMessage(ctx, canonicalTo, RenderText(m)); err != nil {
		return err
	}
	s.options.Remember(canonicalTo, m)
	return nil
}

// WebhookHandler handles inbound Twilio webhook posts. It checks the
// signature, converts the form into an InboundMessage and emits it on the
// Inbound channel.
func (s *TwilioService) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Error("TwilioService.WebhookHandler: failed to parse form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if s.validator != nil {
		params := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
		if !s.validator.Valid(s.publicURL(r), params, r.Header.Get("X-Twilio-Signature")) {
			slog.Warn("TwilioService.WebhookHandler: invalid signature", "remote", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	in, ok := s.inboundFrom(r)
	if !ok {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	slog.Info("TwilioService.WebhookHandler: inbound message", "from", in.UserID, "message_id", in.MessageID)
	s.inbox.emit(in)

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
}

func (s *TwilioService) inboundFrom(r *http.Request) (models.InboundMessage, bool) {
	sid := r.PostFormValue("MessageSid")
	user, err := s.ValidateAndCanonicalizeRecipient(r.PostFormValue("From"))
	if err != nil || sid == "" {
		slog.Warn("TwilioService.WebhookHandler: missing fields", "from", r.PostFormValue("From"), "message_sid", sid)
		return models.InboundMessage{}, false
	}

	text := strings.TrimSpace(r.PostFormValue("Body"))
	if text == "" {
		text = models.UnprocessedText
		if n, _ := strconv.Atoi(r.PostFormValue("NumMedia")); n == 0 {
			slog.Debug("TwilioService.WebhookHandler: empty body without media", "from", user)
		}
	} else {
		text = s.options.Resolve(user, text)
	}

	return models.InboundMessage{
		UserID:     user,
		MessageID:  sid,
		SenderName: r.PostFormValue("ProfileName"),
		Text:       text,
		Channel:    models.ChannelTwilio,
		ReceivedAt: time.Now(),
	}, true
}

func (s *TwilioService) publicURL(r *http.Request) string {
	if s.webhookURL != "" {
		return s.webhookURL
	}
	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
