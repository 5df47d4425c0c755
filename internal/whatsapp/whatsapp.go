// Package whatsapp wraps the Whatsmeow client for a direct WhatsApp Web
// connection: device login, text messages and reactions.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/store"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Constants for WhatsApp client configuration
const (
	// DefaultSQLitePath is the default path for WhatsApp/whatsmeow SQLite database
	DefaultSQLitePath = "/var/lib/medicai/whatsmeow.db"
	// JIDSuffix is the WhatsApp JID suffix for regular users
	JIDSuffix = "s.whatsapp.net"
)

// WhatsAppSender is an interface for sending WhatsApp messages (for production and testing)
type WhatsAppSender interface {
	SendMessage(ctx context.Context, to string, body string) error
	SendReaction(ctx context.Context, to, messageID, emoji string) error
}

// Opts holds configuration options for the WhatsApp client.
// This focuses solely on WhatsApp/whatsmeow database configuration and login settings.
type Opts struct {
	DBDSN       string // WhatsApp/whatsmeow database connection string
	QRPath      string // path to write login QR code
	NumericCode bool   // use numeric login code instead of QR code
}

// Option defines a configuration option for the WhatsApp client.
type Option func(*Opts)

// WithDBDSN sets the WhatsApp/whatsmeow database connection string.
func WithDBDSN(dsn string) Option {
	return func(o *Opts) {
		o.DBDSN = dsn
	}
}

// WithQRCodeOutput instructs the WhatsApp client to write the login QR code to the specified path.
func WithQRCodeOutput(path string) Option {
	return func(o *Opts) {
		o.QRPath = path
	}
}

// WithNumericCode instructs the WhatsApp client to use numeric login code instead of QR code.
func WithNumericCode() Option {
	return func(o *Opts) {
		o.NumericCode = true
	}
}

// Client wraps the Whatsmeow client for modular use
type Client struct {
	waClient *whatsmeow.Client
}

// NewClient opens the whatsmeow session store, logs the device in when it
// has no session yet, and connects.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DBDSN == "" {
		cfg.DBDSN = DefaultSQLitePath
	}

	ctx := context.Background()
	device, err := openDevice(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	wa := whatsmeow.NewClient(device, waLog.Stdout("Client", "INFO", true))

	if wa.Store.ID == nil {
		err = login(ctx, wa, cfg)
	} else {
		err = wa.Connect()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WhatsApp: %w", err)
	}
	slog.Info("whatsapp.NewClient succeeded", "paired", wa.Store.ID != nil)
	return &Client{waClient: wa}, nil
}

// openDevice returns the first device of the session store at dsn. The
// driver follows the application store's DSN detection.
func openDevice(ctx context.Context, dsn string) (*wastore.Device, error) {
	driver := store.DetectDSNType(dsn)
	if needsForeignKeyWarning(dsn) {
		slog.Warn("whatsapp: SQLite session store without foreign keys; whatsmeow expects them",
			"dsn_example", "file:"+dsn+"?_foreign_keys=on")
	}
	container, err := sqlstore.New(ctx, driver, dsn, waLog.Stdout("Database", "INFO", true))
	if err != nil {
		return nil, fmt.Errorf("failed to open WhatsApp session store (%s): %w", driver, err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load WhatsApp device: %w", err)
	}
	return device, nil
}

// login pairs a new device. Each code the server rotates is rendered as a
// QR code, or printed as text with NumericCode, until pairing ends.
func login(ctx context.Context, wa *whatsmeow.Client, cfg Opts) error {
	codes, err := wa.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to open login channel: %w", err)
	}
	if err := wa.Connect(); err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if cfg.QRPath != "" {
		f, err := os.Create(cfg.QRPath)
		if err != nil {
			return fmt.Errorf("failed to create QR file: %w", err)
		}
		defer f.Close()
		out = f
	}
	slog.Info("whatsapp: device not paired, waiting for login", "qr_path", cfg.QRPath, "numeric", cfg.NumericCode)
	for evt := range codes {
		if evt.Event != whatsmeow.QRChannelEventCode {
			slog.Info("whatsapp: login event", "event", evt.Event)
			continue
		}
		if cfg.NumericCode {
			fmt.Fprintln(out, evt.Code)
		} else {
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, out)
		}
	}
	return nil
}

// SendMessage sends a plain text message to the phone number to.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	if c.waClient == nil || c.waClient.Store == nil {
		return fmt.Errorf("whatsapp client not initialized")
	}
	if to == "" || body == "" {
		return fmt.Errorf("message requires a recipient and a body")
	}
	jid := types.NewJID(to, JIDSuffix)
	if _, err := c.waClient.SendMessage(ctx, jid, &waE2E.Message{Conversation: &body}); err != nil {
		slog.Error("Client.SendMessage: send failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	slog.Debug("Client.SendMessage succeeded", "to", to, "body_length", len(body))
	return nil
}

// SendReaction reacts with emoji to the message messageID that the user to
// sent in their private chat.
func (c *Client) SendReaction(ctx context.Context, to, messageID, emoji string) error {
	if c.waClient == nil {
		return fmt.Errorf("whatsapp client not initialized")
	}
	if to == "" || messageID == "" {
		return fmt.Errorf("reaction requires a recipient and a message id")
	}
	jid := types.NewJID(to, JIDSuffix)
	msg := c.waClient.BuildReaction(jid, jid, types.MessageID(messageID), emoji)
	if _, err := c.waClient.SendMessage(ctx, jid, msg); err != nil {
		slog.Error("Client.SendReaction: send failed", "to", to, "error", err)
		return fmt.Errorf("failed to send reaction to %s: %w", to, err)
	}
	slog.Debug("Client.SendReaction succeeded", "to", to, "emoji", emoji)
	return nil
}

// needsForeignKeyWarning reports whether dsn is a SQLite DSN without
// foreign keys turned on.
func needsForeignKeyWarning(dsn string) bool {
	if store.DetectDSNType(dsn) != "sqlite3" {
		return false
	}
	return !strings.Contains(dsn, "foreign_keys")
}

// GetClient returns the underlying whatsmeow client for event handling
func (c *Client) GetClient() *whatsmeow.Client {
	return c.waClient
}

// Disconnect closes the websocket connection.
func (c *Client) Disconnect() {
	if c.waClient != nil {
		c.waClient.Disconnect()
	}
}

// SentMessage is a text recorded by MockClient.
type SentMessage struct {
	To   string
	Body string
}

// SentReaction is a reaction recorded by MockClient.
type SentReaction struct {
	To        string
	MessageID string
	Emoji     string
}

// MockClient records messages instead of sending them (for tests).
type MockClient struct {
	mu        sync.Mutex
	Messages  []SentMessage
	Reactions []SentReaction
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) SendMessage(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, SentMessage{To: to, Body: body})
	return nil
}

func (m *MockClient) SendReaction(ctx context.Context, to, messageID, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reactions = append(m.Reactions, SentReaction{To: to, MessageID: messageID, Emoji: emoji})
	return nil
}
