// Package messaging delivers replies to WhatsApp users and feeds inbound
// events from push-style transports back into the application.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
)

// Constants for service configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for the inbound channel
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned when sending through a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

var phoneNumberRegex = regexp.MustCompile(`\D`)

// Sender delivers one outbound message to a user.
type Sender interface {
	Send(ctx context.Context, to string, m models.Message) error
}

// Service defines a pluggable message delivery backend.
type Service interface {
	Sender

	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient identifier.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// Start begins any background processing (e.g., event handlers).
	Start(ctx context.Context) error

	// Stop stops background processing and closes the inbound channel.
	Stop() error

	// Inbound returns a channel of user events received by the backend
	// itself. Backends whose events arrive through the HTTP webhook never
	// write to it.
	Inbound() <-chan models.InboundMessage
}

// CanonicalPhone strips every non-digit from recipient and requires at least
// six digits.
func CanonicalPhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}
	if canonical != recipient {
		slog.Debug("messaging.CanonicalPhone: canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// inbox is the inbound channel shared by the services. Emitting after close
// is a no-op instead of a panic.
type inbox struct {
	mu      sync.RWMutex
	ch      chan models.InboundMessage
	stopped bool
}

func newInbox() *inbox {
	return &inbox{ch: make(chan models.InboundMessage, DefaultChannelBufferSize)}
}

func (b *inbox) emit(in models.InboundMessage) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		slog.Warn("messaging inbox: dropping inbound message (service stopped)", "user", in.UserID, "message_id", in.MessageID)
		return false
	}
	select {
	case b.ch <- in:
		return true
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("messaging inbox: channel blocked, dropping message", "user", in.UserID, "timeout", DefaultChannelTimeout)
		return false
	}
}

func (b *inbox) isStopped() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stopped
}

func (b *inbox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	close(b.ch)
}
