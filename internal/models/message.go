package models

import (
	"errors"
	"fmt"
)

// MessageKind identifies the outbound message variant.
type MessageKind string

const (
	// MessageKindText is a plain text body.
	MessageKindText MessageKind = "text"
	// MessageKindButtons is a body with up to three reply buttons.
	MessageKindButtons MessageKind = "buttons"
	// MessageKindList is a body with a single-section selectable list.
	MessageKindList MessageKind = "list"
	// MessageKindReaction reacts to an inbound message with an emoji.
	MessageKindReaction MessageKind = "reaction"
	// MessageKindRead marks an inbound message as read.
	MessageKindRead MessageKind = "read"
)

// Limits imposed by the WhatsApp interactive message format.
const (
	MaxButtons          = 3
	MaxListRows         = 10
	MaxButtonTitleRunes = 20
	MaxRowTitleRunes    = 24
)

var (
	ErrEmptyBody        = errors.New("message body cannot be empty")
	ErrTooManyButtons   = errors.New("too many buttons")
	ErrTooManyRows      = errors.New("too many list rows")
	ErrMissingOptions   = errors.New("interactive message requires options")
	ErrMissingSeed      = errors.New("interactive message requires an id seed")
	ErrMissingMessageID = errors.New("message id is required")
	ErrUnknownKind      = errors.New("unknown message kind")
)

// Message is a single outbound reply. Options for buttons and lists are
// addressed by ids derived from Seed: "<seed>_btn_<n>" and "<seed>_row_<n>",
// 1-based, which is what the user's selection comes back as.
type Message struct {
	Kind      MessageKind `json:"kind"`
	Body      string      `json:"body,omitempty"`
	Footer    string      `json:"footer,omitempty"`
	Seed      string      `json:"seed,omitempty"`
	Options   []string    `json:"options,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
	Emoji     string      `json:"emoji,omitempty"`
}

// Text builds a plain text message.
func Text(body string) Message {
	return Message{Kind: MessageKindText, Body: body}
}

// Buttons builds a reply-button message.
func Buttons(body, footer, seed string, options ...string) Message {
	return Message{Kind: MessageKindButtons, Body: body, Footer: footer, Seed: seed, Options: options}
}

// List builds a single-section list message.
func List(body, footer, seed string, options ...string) Message {
	return Message{Kind: MessageKindList, Body: body, Footer: footer, Seed: seed, Options: options}
}

// Reaction builds an emoji reaction to an inbound message.
func Reaction(messageID, emoji string) Message {
	return Message{Kind: MessageKindReaction, MessageID: messageID, Emoji: emoji}
}

// MarkRead builds a read receipt for an inbound message.
func MarkRead(messageID string) Message {
	return Message{Kind: MessageKindRead, MessageID: messageID}
}

// ButtonID returns the id of the n-th (1-based) button for seed.
func ButtonID(seed string, n int) string {
	return fmt.Sprintf("%s_btn_%d", seed, n)
}

// RowID returns the id of the n-th (1-based) list row for seed.
func RowID(seed string, n int) string {
	return fmt.Sprintf("%s_row_%d", seed, n)
}

// OptionID returns the id of the n-th (1-based) option of m.
func (m Message) OptionID(n int) string {
	if m.Kind == MessageKindList {
		return RowID(m.Seed, n)
	}
	return ButtonID(m.Seed, n)
}

// Validate checks the structural limits of m.
func (m Message) Validate() error {
	switch m.Kind {
	case MessageKindText:
		if m.Body == "" {
			return ErrEmptyBody
		}
	case MessageKindButtons, MessageKindList:
		if m.Body == "" {
			return ErrEmptyBody
		}
		if m.Seed == "" {
			return ErrMissingSeed
		}
		if len(m.Options) == 0 {
			return ErrMissingOptions
		}
		if m.Kind == MessageKindButtons && len(m.Options) > MaxButtons {
			return fmt.Errorf("%w: %d > %d", ErrTooManyButtons, len(m.Options), MaxButtons)
		}
		if m.Kind == MessageKindList && len(m.Options) > MaxListRows {
			return fmt.Errorf("%w: %d > %d", ErrTooManyRows, len(m.Options), MaxListRows)
		}
	case MessageKindReaction, MessageKindRead:
		if m.MessageID == "" {
			return ErrMissingMessageID
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	return nil
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
