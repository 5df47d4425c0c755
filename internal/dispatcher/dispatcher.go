// Package dispatcher turns one inbound user event into its ordered replies.
//
// The text is normalized, interactive option ids are mapped to canonical
// tokens, and Classify picks an intent. Each intent resolves to a handler:
// either a flow from the flow package or a stateless command.
package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/clock"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/flow"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/metrics"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/normalize"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/reminder"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/session"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/store"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/symptoms"
)

// AckEmoji is the reaction sent to every handled event.
const AckEmoji = "🩺"

// FailureText is the reply when a handler fails on a collaborator.
const FailureText = "⚠️ Tuvimos un problema procesando tu solicitud. Por favor inténtalo nuevamente en unos minutos."

// DefaultLinkTTL is how long the last retired drug is remembered for the
// adherence link buttons.
const DefaultLinkTTL = 24 * time.Hour

// Repo is the storage the stateless commands need.
type Repo interface {
	store.MedRepo
	store.PickupRepo
}

// Dependencies holds the collaborators of a Dispatcher.
type Dependencies struct {
	Flows     *flow.Set
	Sessions  *session.Registry
	Reminders *reminder.Directory
	Store     Repo
	Clock     clock.Clock
	Metrics   *metrics.Metrics
}

// Opts holds configuration options for a Dispatcher.
type Opts struct {
	LinkTTL time.Duration
}

// Option configures a Dispatcher.
type Option func(*Opts)

// WithLinkTTL sets how long a retired drug stays available for
// "vincular_adherencia_si".
func WithLinkTTL(ttl time.Duration) Option {
	return func(o *Opts) {
		o.LinkTTL = ttl
	}
}

// request is one classified event as seen by a handler.
type request struct {
	User      string
	MessageID string
	Name      string
	Text      string
}

type handlerFunc func(ctx context.Context, req request) ([]models.Message, error)

// Dispatcher routes inbound events to flows and commands.
type Dispatcher struct {
	flows     *flow.Set
	sessions  *session.Registry
	reminders *reminder.Directory
	store     Repo
	clock     clock.Clock
	metrics   *metrics.Metrics

	// lastRetired remembers, per user, the drug of the last confirmed pickup.
	lastRetired *cache.Cache
	handlers    map[Intent]handlerFunc
}

// New builds a Dispatcher over deps.
func New(deps Dependencies, opts ...Option) *Dispatcher {
	cfg := Opts{LinkTTL: DefaultLinkTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	if deps.Clock == nil {
		deps.Clock = clock.System(clock.LoadLocation(clock.DefaultZone))
	}
	d := &Dispatcher{
		flows:       deps.Flows,
		sessions:    deps.Sessions,
		reminders:   deps.Reminders,
		store:       deps.Store,
		clock:       deps.Clock,
		metrics:     deps.Metrics,
		lastRetired: cache.New(cfg.LinkTTL, cfg.LinkTTL),
	}
	d.handlers = map[Intent]handlerFunc{
		IntentEmergency:            d.emergency,
		IntentTriageContinue:       d.continueFlow(session.KindTriage),
		IntentGreeting:             d.greeting,
		IntentMoreMenu:             d.moreMenu,
		IntentAppointmentStart:     d.startAppointment,
		IntentAppointmentContinue:  d.continueFlow(session.KindAppointment),
		IntentMedicationStart:      d.startMedication,
		IntentMedicationContinue:   d.continueFlow(session.KindMedication),
		IntentListReminders:        d.listReminders,
		IntentHelp:                 d.help,
		IntentDebugTime:            d.debugTime,
		IntentTestReminder:         d.testReminder,
		IntentRemoveReminder:       d.removeReminder,
		IntentTriageMenu:           d.triageMenu,
		IntentTriageMoreCategories: d.triageMoreCategories,
		IntentTriageStart:          d.startTriage,
		IntentStockStart:           d.startStock,
		IntentStockContinue:        d.continueFlow(session.KindStock),
		IntentManageReminders:      d.manageReminders,
		IntentStockAdd:             d.stockAdd,
		IntentStockRemove:          d.stockRemove,
		IntentStockShow:            d.stockShow,
		IntentSchedulePickup:       d.schedulePickup,
		IntentScheduleCycle:        d.scheduleCycle,
		IntentConfirmPickup:        d.confirmPickup,
		IntentLinkAdherenceYes:     d.linkAdherenceYes,
		IntentLinkAdherenceNo:      d.linkAdherenceNo,
		IntentLinkDoses:            d.linkDoses,
		IntentListPickups:          d.listPickups,
		IntentThanks:               d.thanks,
		IntentFarewell:             d.farewell,
		IntentRouteStart:           d.startRoute,
		IntentRouteContinue:        d.continueFlow(session.KindRoute),
		IntentUnknown:              d.unknown,
	}
	return d
}

// Canonical returns the text the classifier sees for raw inbound text.
func Canonical(raw string) string {
	return MapUI(normalize.Text(strings.TrimSpace(raw)))
}

// Handle classifies in and returns every message to deliver, in order: the
// read receipt, the acknowledgment reaction, then the replies.
func (d *Dispatcher) Handle(ctx context.Context, in models.InboundMessage) []models.Message {
	start := time.Now()
	defer func() { d.metrics.ObserveDispatch(time.Since(start).Seconds()) }()

	req := request{
		User:      in.UserID,
		MessageID: in.MessageID,
		Name:      strings.TrimSpace(in.SenderName),
		Text:      Canonical(in.Text),
	}
	out := []models.Message{models.MarkRead(in.MessageID), models.Reaction(in.MessageID, AckEmoji)}
	return append(out, d.dispatch(ctx, req)...)
}

func (d *Dispatcher) dispatch(ctx context.Context, req request) []models.Message {
	active, _ := d.sessions.Get(req.User)
	intent := Classify(req.Text, active)
	slog.Debug("Dispatcher.dispatch: classified", "user", req.User, "intent", intent)

	msgs, err := d.handlers[intent](ctx, req)
	if errors.Is(err, flow.ErrNotHandled) {
		intent = Classify(req.Text, nil)
		slog.Debug("Dispatcher.dispatch: flow declined input, reclassified", "user", req.User, "intent", intent)
		msgs, err = d.handlers[intent](ctx, req)
		if errors.Is(err, flow.ErrNotHandled) {
			intent = IntentUnknown
			msgs, err = d.unknown(ctx, req)
		}
	}
	d.metrics.ObserveIntent(string(intent))

	if err != nil {
		slog.Error("Dispatcher.dispatch: handler failed", "user", req.User, "intent", intent, "error", err)
		return []models.Message{models.Text(FailureText)}
	}
	if len(msgs) == 0 {
		slog.Warn("Dispatcher.dispatch: handler produced no reply", "user", req.User, "intent", intent)
		return []models.Message{models.Text(FailureText)}
	}
	return msgs
}

func (d *Dispatcher) continueFlow(k session.Kind) handlerFunc {
	return func(ctx context.Context, req request) ([]models.Message, error) {
		return d.flows.Continue(ctx, req.User, k, req.Text)
	}
}

func (d *Dispatcher) startAppointment(_ context.Context, req request) ([]models.Message, error) {
	return d.flows.Appointment.Start(req.User), nil
}

func (d *Dispatcher) startMedication(_ context.Context, req request) ([]models.Message, error) {
	return d.flows.Medication.Start(req.User), nil
}

func (d *Dispatcher) triageMenu(context.Context, request) ([]models.Message, error) {
	return d.flows.Triage.Menu(), nil
}

func (d *Dispatcher) triageMoreCategories(context.Context, request) ([]models.Message, error) {
	return d.flows.Triage.MoreCategories(), nil
}

func (d *Dispatcher) startTriage(_ context.Context, req request) ([]models.Message, error) {
	c, ok := flow.ParseStartToken(req.Text)
	if !ok {
		c = symptoms.Respiratorio
	}
	return d.flows.Triage.Start(req.User, c), nil
}

func (d *Dispatcher) startStock(_ context.Context, req request) ([]models.Message, error) {
	return d.flows.Stock.Start(req.User), nil
}

func (d *Dispatcher) startRoute(_ context.Context, req request) ([]models.Message, error) {
	return d.flows.Route.Start(req.User), nil
}
