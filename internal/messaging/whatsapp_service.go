package messaging

import (
	"context"
	"log/slog"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/whatsapp"
	"go.mau.fi/whatsmeow/types/events"
)

// WhatsAppService implements Service using the Whatsmeow-based whatsapp client.
// The direct connection has no buttons or lists, so interactive messages are
// rendered as numbered text.
type WhatsAppService struct {
	client   whatsapp.WhatsAppSender
	waClient *whatsapp.Client // Access to underlying client for event handling
	options  *OptionMemory
	inbox    *inbox
}

var _ Service = (*WhatsAppService)(nil)

// NewWhatsAppService creates a new WhatsAppService wrapping the given WhatsAppSender.
func NewWhatsAppService(client whatsapp.WhatsAppSender) *WhatsAppService {
	service := &WhatsAppService{
		client:  client,
		options: NewOptionMemory(DefaultOptionTTL),
		inbox:   newInbox(),
	}

	if waClient, ok := client.(*whatsapp.Client); ok {
		service.waClient = waClient
		slog.Debug("WhatsAppService created with full client for event handling")
	} else {
		slog.Debug("WhatsAppService created with interface client (likely mock)")
	}

	return service
}

func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalPhone(recipient)
}

// Start registers the event handler on the live client.
func (s *WhatsAppService) Start(ctx context.Context) error {
	if s.waClient == nil || s.waClient.GetClient() == nil {
		slog.Debug("WhatsAppService no full client available, skipping event handling (likely mock)")
		return nil
	}
	s.waClient.GetClient().AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			s.handleIncomingMessage(v)
		case *events.Disconnected:
			slog.Warn("WhatsAppService: connection lost")
		}
	})
	slog.Debug("WhatsAppService event handler registered")
	return nil
}

// Stop closes the inbound channel. Events arriving afterwards are dropped.
func (s *WhatsAppService) Stop() error {
	s.inbox.close()
	slog.Info("WhatsAppService stopped and channels closed")
	return nil
}

func (s *WhatsAppService) Inbound() <-chan models.InboundMessage {
	return s.inbox.ch
}

// Send delivers m. Read receipts are skipped on the direct connection.
func (s *WhatsAppService) Send(ctx context.Context, to string, m models.Message) error {
	if s.inbox.isStopped() {
		return ErrServiceStopped
	}
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}
	switch m.Kind {
	case models.MessageKindRead:
		slog.Debug("WhatsAppService skipping read receipt", "to", canonicalTo, "message_id", m.MessageID)
		return nil
	case models.MessageKindReaction:
		return s.client.SendReaction(ctx, canonicalTo, m.MessageID, m.Emoji)
	}
	if err := s.client.SendMessage(ctx, canonicalTo, RenderText(m)); err != nil {
		slog.Error("WhatsAppService Send error", "error", err, "to", canonicalTo, "kind", m.Kind)
		return err
	}
	s.options.Remember(canonicalTo, m)
	return nil
}

// handleIncomingMessage converts a private chat message into an inbound event.
func (s *WhatsAppService) handleIncomingMessage(evt *events.Message) {
	if evt.Info.IsFromMe || evt.Info.IsGroup {
		return
	}
	in, ok := s.inboundFrom(evt)
	if !ok {
		return
	}
	if s.inbox.emit(in) {
		slog.Info("WhatsAppService incoming message forwarded", "from", in.UserID)
	}
}

func (s *WhatsAppService) inboundFrom(evt *events.Message) (models.InboundMessage, bool) {
	user, err := CanonicalPhone(evt.Info.Sender.User)
	if err != nil {
		slog.Debug("WhatsAppService ignoring message from unusable sender", "sender", evt.Info.Sender.String(), "error", err)
		return models.InboundMessage{}, false
	}

	text := models.UnprocessedText
	if msg := evt.Message; msg != nil {
		if msg.Conversation != nil {
			text = msg.GetConversation()
		} else if msg.ExtendedTextMessage != nil && msg.ExtendedTextMessage.Text != nil {
			text = msg.ExtendedTextMessage.GetText()
		}
	}
	if text != models.UnprocessedText {
		text = s.options.Resolve(user, text)
	}

	return models.InboundMessage{
		UserID:     user,
		MessageID:  string(evt.Info.ID),
		SenderName: evt.Info.PushName,
		Text:       text,
		Channel:    models.ChannelWhatsmeow,
		ReceivedAt: evt.Info.Timestamp,
	}, true
}

// Disconnect closes the whatsmeow connection, if there is one.
func (s *WhatsAppService) Disconnect() {
	if s.waClient != nil {
		s.waClient.Disconnect()
	}
}
