// Package flow implements the multi-step conversations: symptom triage,
// appointment booking, route guidance, stock/pickup intake and medication
// reminder setup.
//
// Every flow keeps its progress in a session.Session stored in the shared
// session.Registry. Input reaching a flow is already normalized and has had
// interactive option ids mapped to canonical tokens; menu steps never reject
// input, unrecognized text takes the step's default branch.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/clock"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/pharmacy"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/reminder"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/session"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/store"
)

// ErrNotHandled is returned when the active flow declines the input. The
// session has been cleared and the caller should classify the input again.
var ErrNotHandled = errors.New("input not handled by active flow")

// Handler advances one flow by a single user input.
type Handler interface {
	Handle(ctx context.Context, user, text string) ([]models.Message, error)
}

// Dependencies holds the collaborators shared by the flows.
type Dependencies struct {
	Sessions  *session.Registry
	Reminders *reminder.Directory
	Pickups   store.PickupRepo
	Pharmacy  pharmacy.Lookup
	Clock     clock.Clock
}

// Set is the collection of flows, addressable by session kind.
type Set struct {
	Triage      *Triage
	Appointment *Appointment
	Route       *Route
	Stock       *Stock
	Medication  *Medication

	handlers map[session.Kind]Handler
}

// NewSet builds every flow over deps.
func NewSet(deps Dependencies) *Set {
	if deps.Pharmacy == nil {
		deps.Pharmacy = pharmacy.StubLookup{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.System(clock.LoadLocation(clock.DefaultZone))
	}
	s := &Set{
		Triage:      &Triage{sessions: deps.Sessions},
		Appointment: &Appointment{sessions: deps.Sessions},
		Route:       &Route{sessions: deps.Sessions},
		Stock:       &Stock{sessions: deps.Sessions, pickups: deps.Pickups, lookup: deps.Pharmacy, clock: deps.Clock},
		Medication:  &Medication{sessions: deps.Sessions, reminders: deps.Reminders},
	}
	s.handlers = map[session.Kind]Handler{
		session.KindTriage:      s.Triage,
		session.KindAppointment: s.Appointment,
		session.KindRoute:       s.Route,
		session.KindStock:       s.Stock,
		session.KindMedication:  s.Medication,
	}
	return s
}

// Get retrieves the Handler for a session kind.
func (s *Set) Get(k session.Kind) (Handler, bool) {
	h, ok := s.handlers[k]
	return h, ok
}

// Continue feeds text to the flow owning the user's session of kind k.
func (s *Set) Continue(ctx context.Context, user string, k session.Kind, text string) ([]models.Message, error) {
	slog.Debug("Flow Continue invoked", "kind", k, "user", user)
	h, ok := s.Get(k)
	if !ok {
		slog.Error("No flow registered for session kind", "kind", k, "user", user)
		return nil, fmt.Errorf("no flow registered for session kind %s", k)
	}
	msgs, err := h.Handle(ctx, user, text)
	if err != nil && !errors.Is(err, ErrNotHandled) {
		slog.Error("Flow handler error", "kind", k, "user", user, "error", err)
	}
	return msgs, err
}
