package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
)

const maxWebhookBody = 1 << 20

var (
	errMissingEntry   = errors.New("payload has no entry[0].changes[0].value")
	errMissingMessage = errors.New("message is missing required fields")
)

// cloudEvent is the subset of a Cloud API webhook notification that carries
// user messages.
type cloudEvent struct {
	Entry []struct {
		Changes []struct {
			Value *cloudValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type cloudValue struct {
	Contacts []struct {
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		WaID string `json:"wa_id"`
	} `json:"contacts"`
	Messages []cloudInbound `json:"messages"`
}

type cloudInbound struct {
	From      string `json:"from" validate:"required"`
	ID        string `json:"id" validate:"required"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Button *struct {
		Text    string `json:"text"`
		Payload string `json:"payload"`
	} `json:"button"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID string `json:"id"`
		} `json:"button_reply"`
		ListReply *struct {
			ID string `json:"id"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// text reduces a message to what the dispatcher reads: the body of text
// messages, the text of template buttons, the option id of interactive
// replies, and UnprocessedText for anything else.
func (m cloudInbound) text() string {
	switch m.Type {
	case "text":
		if m.Text != nil {
			return m.Text.Body
		}
	case "button":
		if m.Button != nil {
			return m.Button.Text
		}
	case "interactive":
		if m.Interactive == nil {
			break
		}
		switch m.Interactive.Type {
		case "button_reply":
			if m.Interactive.ButtonReply != nil {
				return m.Interactive.ButtonReply.ID
			}
		case "list_reply":
			if m.Interactive.ListReply != nil {
				return m.Interactive.ListReply.ID
			}
		}
	}
	return models.UnprocessedText
}

func (m cloudInbound) receivedAt() time.Time {
	if secs, err := strconv.ParseInt(m.Timestamp, 10, 64); err == nil {
		return time.Unix(secs, 0)
	}
	return time.Now()
}

// parseCloudEvent decodes the first message of a webhook notification. It
// returns ok=false for notifications without messages (status updates).
func (s *Server) parseCloudEvent(body []byte) (in models.InboundMessage, ok bool, err error) {
	var evt cloudEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return in, false, fmt.Errorf("invalid JSON: %w", err)
	}
	if len(evt.Entry) == 0 || len(evt.Entry[0].Changes) == 0 || evt.Entry[0].Changes[0].Value == nil {
		return in, false, errMissingEntry
	}
	value := evt.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		return in, false, nil
	}

	msg := value.Messages[0]
	if err := s.validate.Struct(msg); err != nil {
		return in, false, fmt.Errorf("%w: %v", errMissingMessage, err)
	}
	name := ""
	if len(value.Contacts) > 0 {
		name = value.Contacts[0].Profile.Name
	}
	return models.InboundMessage{
		UserID:     msg.From,
		MessageID:  msg.ID,
		SenderName: name,
		Text:       msg.text(),
		Channel:    models.ChannelCloudAPI,
		ReceivedAt: msg.receivedAt(),
	}, true, nil
}

func (s *Server) welcomeHandler(w http.ResponseWriter, r *http.Request) {
	writeTextResponse(w, http.StatusOK, "Hola, soy MedicAI, tu asistente virtual. ¿En qué puedo ayudarte?")
}

// verifyWebhookHandler answers Meta's subscription challenge.
func (s *Server) verifyWebhookHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, token, challenge := q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge")
	if mode == "subscribe" && s.verifyToken != "" && token == s.verifyToken && challenge != "" {
		slog.Info("Server.verifyWebhookHandler: webhook verified")
		writeTextResponse(w, http.StatusOK, challenge)
		return
	}
	slog.Warn("Server.verifyWebhookHandler: verification rejected", "mode", mode)
	writeTextResponse(w, http.StatusForbidden, "Token inválido")
}

// receiveWebhookHandler decodes a Cloud API notification and processes its
// message before answering.
func (s *Server) receiveWebhookHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Warn("Server.receiveWebhookHandler: failed to read body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Failed to read body"))
		return
	}

	in, ok, err := s.parseCloudEvent(body)
	if err != nil {
		slog.Warn("Server.receiveWebhookHandler: malformed event", "error", err)
		s.metrics.ObserveInbound(string(models.ChannelCloudAPI), "invalid")
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if !ok {
		slog.Debug("Server.receiveWebhookHandler: event without messages ignored")
		s.metrics.ObserveInbound(string(models.ChannelCloudAPI), "ignored")
		writeJSONResponse(w, http.StatusOK, models.Ignored("ignored"))
		return
	}

	slog.Info("Server.receiveWebhookHandler: inbound message", "from", in.UserID, "message_id", in.MessageID)
	s.inflight.Add(1)
	defer s.inflight.Done()
	if err := s.Process(r.Context(), in); err != nil {
		slog.Warn("Server.receiveWebhookHandler: event rejected", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("processed", nil))
}
