package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
)

// Graph API constants used by the Cloud API payloads.
const (
	messagingProduct = "whatsapp"
	// ListButtonLabel is the label of the button that opens a list message.
	ListButtonLabel = "Ver Opciones"
	// ListSectionTitle is the title of the single list section.
	ListSectionTitle = "Secciones"
	// DefaultCloudTimeout bounds one Graph API call.
	DefaultCloudTimeout = 15 * time.Second
)

// CloudOpts holds configuration for the Cloud API service.
type CloudOpts struct {
	Token      string
	URL        string
	HTTPClient *http.Client
}

// CloudOption configures a CloudService.
type CloudOption func(*CloudOpts)

// WithCloudToken sets the bearer token of the Graph API.
func WithCloudToken(token string) CloudOption {
	return func(o *CloudOpts) { o.Token = token }
}

// WithCloudURL sets the messages endpoint, e.g.
// https://graph.facebook.com/v20.0/<phone-number-id>/messages.
func WithCloudURL(url string) CloudOption {
	return func(o *CloudOpts) { o.URL = url }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) CloudOption {
	return func(o *CloudOpts) { o.HTTPClient = c }
}

// CloudService implements Service on the WhatsApp Cloud API. Inbound events
// reach the application through the webhook, not through Inbound.
type CloudService struct {
	token  string
	url    string
	client *http.Client
	inbox  *inbox
}

var _ Service = (*CloudService)(nil)

// NewCloudService creates a Cloud API service.
func NewCloudService(opts ...CloudOption) (*CloudService, error) {
	cfg := CloudOpts{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("cloud API messages URL must be provided")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("cloud API token must be provided")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultCloudTimeout}
	}
	slog.Debug("CloudService created", "url", cfg.URL)
	return &CloudService{token: cfg.Token, url: cfg.URL, client: cfg.HTTPClient, inbox: newInbox()}, nil
}

func (s *CloudService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalPhone(recipient)
}

func (s *CloudService) Start(context.Context) error { return nil }

func (s *CloudService) Stop() error {
	s.inbox.close()
	slog.Info("CloudService stopped")
	return nil
}

func (s *CloudService) Inbound() <-chan models.InboundMessage { return s.inbox.ch }

// Send posts m to the Graph API. Any status other than 200 is an error
// carrying the response body.
func (s *CloudService) Send(ctx context.Context, to string, m models.Message) error {
	if s.inbox.isStopped() {
		return ErrServiceStopped
	}
	payload, err := CloudPayload(to, m)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build cloud API request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s message to %s: %w", m.Kind, to, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloud API returned %d for %s message to %s: %s", resp.StatusCode, m.Kind, to, body)
	}
	slog.Debug("CloudService.Send succeeded", "to", to, "kind", m.Kind)
	return nil
}

type cloudText struct {
	Body string `json:"body"`
}

type cloudLabel struct {
	Text string `json:"text"`
}

type cloudReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type cloudButton struct {
	Type  string     `json:"type"`
	Reply cloudReply `json:"reply"`
}

type cloudRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type cloudSection struct {
	Title string     `json:"title"`
	Rows  []cloudRow `json:"rows"`
}

type cloudAction struct {
	Buttons  []cloudButton  `json:"buttons,omitempty"`
	Button   string         `json:"button,omitempty"`
	Sections []cloudSection `json:"sections,omitempty"`
}

type cloudInteractive struct {
	Type   string      `json:"type"`
	Body   cloudLabel  `json:"body"`
	Footer *cloudLabel `json:"footer,omitempty"`
	Action cloudAction `json:"action"`
}

type cloudReaction struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type cloudMessage struct {
	MessagingProduct string            `json:"messaging_product"`
	RecipientType    string            `json:"recipient_type,omitempty"`
	To               string            `json:"to,omitempty"`
	Type             string            `json:"type,omitempty"`
	Text             *cloudText        `json:"text,omitempty"`
	Interactive      *cloudInteractive `json:"interactive,omitempty"`
	Reaction         *cloudReaction    `json:"reaction,omitempty"`
	Status           string            `json:"status,omitempty"`
	MessageID        string            `json:"message_id,omitempty"`
}

// CloudPayload encodes m as a Graph API messages request for recipient to.
// Button titles are cut to 20 runes and row titles to 24; a row whose option
// was cut carries the full text as its description.
func CloudPayload(to string, m models.Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s message: %w", m.Kind, err)
	}
	out := cloudMessage{MessagingProduct: messagingProduct, RecipientType: "individual", To: to}
	switch m.Kind {
	case models.MessageKindText:
		out.Type = "text"
		out.Text = &cloudText{Body: m.Body}
	case models.MessageKindButtons:
		buttons := make([]cloudButton, len(m.Options))
		for i, opt := range m.Options {
			buttons[i] = cloudButton{Type: "reply", Reply: cloudReply{
				ID:    m.OptionID(i + 1),
				Title: models.Truncate(opt, models.MaxButtonTitleRunes),
			}}
		}
		out.Type = "interactive"
		out.Interactive = &cloudInteractive{Type: "button", Body: cloudLabel{Text: m.Body}, Footer: footer(m.Footer), Action: cloudAction{Buttons: buttons}}
	case models.MessageKindList:
		rows := make([]cloudRow, len(m.Options))
		for i, opt := range m.Options {
			title := models.Truncate(opt, models.MaxRowTitleRunes)
			desc := ""
			if title != opt {
				desc = opt
			}
			rows[i] = cloudRow{ID: m.OptionID(i + 1), Title: title, Description: desc}
		}
		out.Type = "interactive"
		out.Interactive = &cloudInteractive{Type: "list", Body: cloudLabel{Text: m.Body}, Footer: footer(m.Footer), Action: cloudAction{
			Button:   ListButtonLabel,
			Sections: []cloudSection{{Title: ListSectionTitle, Rows: rows}},
		}}
	case models.MessageKindReaction:
		out.Type = "reaction"
		out.Reaction = &cloudReaction{MessageID: m.MessageID, Emoji: m.Emoji}
	case models.MessageKindRead:
		out = cloudMessage{MessagingProduct: messagingProduct, Status: "read", MessageID: m.MessageID}
	}
	return json.Marshal(out)
}

func footer(s string) *cloudLabel {
	if s == "" {
		return nil
	}
	return &cloudLabel{Text: s}
}
