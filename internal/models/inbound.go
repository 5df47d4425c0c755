package models

import "time"

// Channel names the transport an inbound message arrived on.
type Channel string

const (
	ChannelCloudAPI  Channel = "cloud"
	ChannelTwilio    Channel = "twilio"
	ChannelWhatsmeow Channel = "whatsmeow"
)

// UnprocessedText is what an inbound message of an unsupported type (image,
// audio, location...) is reduced to before dispatch.
const UnprocessedText = "mensaje no procesado"

// InboundMessage is one user event after transport decoding. Text holds the
// raw body, or the selected option id for button and list replies.
type InboundMessage struct {
	UserID     string    `json:"user_id" validate:"required"`
	MessageID  string    `json:"message_id" validate:"required"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	Channel    Channel   `json:"channel" validate:"required"`
	ReceivedAt time.Time `json:"received_at"`
}
