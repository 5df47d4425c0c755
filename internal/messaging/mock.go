package messaging

import (
	"context"
	"sync"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
)

// Delivery is one message recorded by MockService.
type Delivery struct {
	To      string
	Message models.Message
}

// MockService records sent messages instead of delivering them (for tests).
// Fail, when set, decides the error returned for each send.
type MockService struct {
	mu    sync.Mutex
	sent  []Delivery
	inbox *inbox
	Fail  func(to string, m models.Message) error
}

var _ Service = (*MockService)(nil)

func NewMockService() *MockService {
	return &MockService{inbox: newInbox()}
}

func (m *MockService) Send(_ context.Context, to string, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		if err := m.Fail(to, msg); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, Delivery{To: to, Message: msg})
	return nil
}

// Sent returns a copy of the recorded deliveries.
func (m *MockService) Sent() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Delivery(nil), m.sent...)
}

// Texts returns the bodies of the recorded text messages to user.
func (m *MockService) Texts(user string) []string {
	var out []string
	for _, d := range m.Sent() {
		if d.To == user && d.Message.Kind == models.MessageKindText {
			out = append(out, d.Message.Body)
		}
	}
	return out
}

func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalPhone(recipient)
}

func (m *MockService) Start(context.Context) error { return nil }

func (m *MockService) Stop() error {
	m.inbox.close()
	return nil
}

func (m *MockService) Inbound() <-chan models.InboundMessage { return m.inbox.ch }

// Emit pushes an inbound event as a push-style backend would.
func (m *MockService) Emit(in models.InboundMessage) bool {
	return m.inbox.emit(in)
}
