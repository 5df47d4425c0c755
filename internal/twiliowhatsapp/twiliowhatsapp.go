// Package twiliowhatsapp wraps the Twilio API for WhatsApp delivery and
// webhook signature checks.
package twiliowhatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// AddressPrefix marks WhatsApp addresses in Twilio's From and To fields.
const AddressPrefix = "whatsapp:"

// TwilioWhatsAppSender sends plain WhatsApp text through Twilio.
type TwilioWhatsAppSender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Opts holds configuration options for the Twilio WhatsApp client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string
}

// Option defines a configuration option for the Twilio WhatsApp client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the auth token used for the REST API and webhook signatures.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromWhats sets the sender number, with or without the "whatsapp:" prefix.
func WithFromWhats(from string) Option {
	return func(o *Opts) { o.FromWhats = from }
}

// Client wraps Twilio REST API for WhatsApp
type Client struct {
	client    *twilio.RestClient
	fromWhats string // WhatsApp number in "whatsapp:+1234567890" format
}

// NewClient creates a Twilio client. Options left empty fall back to
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromWhats == "" {
		cfg.FromWhats = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromWhats_set", cfg.FromWhats != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromWhats == "" {
		return nil, fmt.Errorf("fromWhats number must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &Client{
		client:    client,
		fromWhats: Address(cfg.FromWhats),
	}, nil
}

// Address formats a phone number as a Twilio WhatsApp address.
func Address(number string) string {
	if strings.HasPrefix(number, AddressPrefix) {
		return number
	}
	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}
	return AddressPrefix + number
}

// SendMessage sends a WhatsApp message using Twilio API
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(Address(to))
	params.SetFrom(c.fromWhats)
	params.SetBody(body)

	_, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio SendMessage failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}

	slog.Debug("Twilio message sent", "to", to)
	return nil
}

// SignatureValidator checks the X-Twilio-Signature header of webhook posts.
type SignatureValidator struct {
	rv twclient.RequestValidator
}

// NewSignatureValidator returns a validator for authToken, or nil when the
// token is empty, which disables the check.
func NewSignatureValidator(authToken string) *SignatureValidator {
	if authToken == "" {
		return nil
	}
	return &SignatureValidator{rv: twclient.NewRequestValidator(authToken)}
}

// Valid reports whether signature matches the public url and form params.
// A nil validator accepts every request.
func (v *SignatureValidator) Valid(url string, params map[string]string, signature string) bool {
	if v == nil {
		return true
	}
	return v.rv.Validate(url, params, signature)
}

// MockClient records messages instead of sending them (for tests).
type MockClient struct {
	mu           sync.Mutex
	SentMessages []SentMessage
}

type SentMessage struct {
	To   string
	Body string
}

func NewMockClient() *MockClient {
	return &MockClient{SentMessages: []SentMessage{}}
}

func (m *MockClient) SendMessage(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, SentMessage{To: to, Body: body})
	return nil
}

// Bodies returns the recorded message bodies in order.
func (m *MockClient) Bodies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.SentMessages))
	for i, s := range m.SentMessages {
		out[i] = s.Body
	}
	return out
}
