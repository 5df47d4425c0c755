package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/clock"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/messaging"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/metrics"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/notify"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/reminder"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = "56911112222"

var base = time.Date(2025, 10, 1, 9, 30, 0, 0, time.UTC)

type recordingEmail struct {
	mu   sync.Mutex
	msgs []notify.EmailMessage
}

func (r *recordingEmail) Send(_ context.Context, msg notify.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

type harness struct {
	scanner   *Scanner
	store     *store.InMemoryStore
	reminders *reminder.Directory
	out       *messaging.MockService
	email     *recordingEmail
	reg       *prometheus.Registry
}

func newHarness(t *testing.T, repo PickupRepo) *harness {
	t.Helper()
	h := &harness{
		store:     store.NewInMemoryStore(),
		reminders: reminder.NewDirectory(),
		out:       messaging.NewMockService(),
		email:     &recordingEmail{},
		reg:       prometheus.NewRegistry(),
	}
	if repo == nil {
		repo = h.store
	}
	h.scanner = New(h.reminders, repo, h.out, clock.Fixed(base),
		WithLocation(time.UTC),
		WithMetrics(metrics.New(h.reg)),
		WithStaffEmail("staff@medicai.example", h.email),
	)
	return h
}

func (h *harness) schedule(t *testing.T, drug string, daysFromBase int, hour string) models.Pickup {
	t.Helper()
	date := base.AddDate(0, 0, daysFromBase).Format(models.DateLayout)
	p, err := h.store.SchedulePickup(context.Background(), user, drug, date, hour, 0)
	require.NoError(t, err)
	return p
}

func TestReminderFiresOncePerMinute(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.reminders.Register(user, "Losartan", []string{"09:30", "21:00"})

	require.NoError(t, h.scanner.Tick(ctx, base))
	require.NoError(t, h.scanner.Tick(ctx, base.Add(20*time.Second)))
	require.NoError(t, h.scanner.Tick(ctx, base.Add(time.Minute)))

	texts := h.out.Texts(user)
	require.Len(t, texts, 1)
	assert.Equal(t, "⏰ *Recordatorio de medicamento*\nEs hora de tomar: *Losartan*.", texts[0])

	require.NoError(t, h.scanner.Tick(ctx, base.Add(24*time.Hour)))
	assert.Len(t, h.out.Texts(user), 2, "the same time fires again the next day")
}

func TestPreNoticeThreeDaysAheadAtPickupHour(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.schedule(t, "Metformina", 3, "09:30")
	h.schedule(t, "Losartan", 2, "09:30")
	h.schedule(t, "Atorvastatina", 3, "10:00")

	require.NoError(t, h.scanner.Tick(ctx, base))
	require.NoError(t, h.scanner.Tick(ctx, base.Add(30*time.Second)))

	texts := h.out.Texts(user)
	require.Len(t, texts, 1)
	assert.Equal(t, "📢 En 3 días te corresponde retirar: *Metformina*. ¿Quieres que te recuerde el mismo día a las 09:30?", texts[0])
}

func TestDueDayPrompt(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.schedule(t, "Metformina", 0, "09:30")

	require.NoError(t, h.scanner.Tick(ctx, base.Add(-time.Minute)))
	assert.Empty(t, h.out.Texts(user))

	require.NoError(t, h.scanner.Tick(ctx, base))
	require.NoError(t, h.scanner.Tick(ctx, base))
	texts := h.out.Texts(user)
	require.Len(t, texts, 1)
	assert.Equal(t, "🚨 *Hoy corresponde retirar* *Metformina*.\nResponde: *retire Metformina si* o *retire Metformina no*.", texts[0])
}

func TestAutoMissAtExactlySevenDays(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	seven := h.schedule(t, "Metformina", -7, "08:00")
	six := h.schedule(t, "Losartan", -6, "08:00")

	require.NoError(t, h.scanner.Tick(ctx, base))

	pickups, err := h.store.ListPickups(ctx, user)
	require.NoError(t, err)
	status := map[string]models.PickupStatus{}
	for _, p := range pickups {
		status[p.ID] = p.Status
	}
	assert.Equal(t, models.PickupMissed, status[seven.ID])
	assert.Equal(t, models.PickupPending, status[six.ID])

	texts := h.out.Texts(user)
	require.Len(t, texts, 1)
	assert.Equal(t, "⚠️ No registras el retiro de *Metformina*. ¿Reprogramo una nueva fecha?", texts[0])

	require.Len(t, h.email.msgs, 1)
	assert.Equal(t, "staff@medicai.example", h.email.msgs[0].To)
	assert.Contains(t, h.email.msgs[0].Body, "Metformina")

	// Already missed: no second notice.
	require.NoError(t, h.scanner.Tick(ctx, base.Add(time.Minute)))
	assert.Len(t, h.out.Texts(user), 1)
	assert.Len(t, h.email.msgs, 1)
}

func TestSendFailureIsSkipped(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.out.Fail = func(_ string, m models.Message) error {
		if strings.Contains(m.Body, "Recordatorio") {
			return errors.New("delivery down")
		}
		return nil
	}
	h.reminders.Register(user, "Losartan", []string{"09:30"})
	h.schedule(t, "Metformina", 0, "09:30")

	require.NoError(t, h.scanner.Tick(ctx, base))
	texts := h.out.Texts(user)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Hoy corresponde retirar")
}

type failingRepo struct{}

func (failingRepo) PendingPickups(context.Context) ([]models.Pickup, error) {
	return nil, errors.New("database is locked")
}

func (failingRepo) MarkMissed(context.Context, string) (bool, error) {
	return false, errors.New("database is locked")
}

func TestStoreFailureAbandonsTick(t *testing.T) {
	h := newHarness(t, failingRepo{})
	ctx := context.Background()
	h.reminders.Register(user, "Losartan", []string{"09:30"})

	err := h.scanner.Tick(ctx, base)
	require.Error(t, err)
	assert.Len(t, h.out.Texts(user), 1, "reminders are sent before the store is read")

	expected := `
# HELP medicai_scanner_tick_failures_total Scanner ticks abandoned because the store failed
# TYPE medicai_scanner_tick_failures_total counter
medicai_scanner_tick_failures_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.reg, strings.NewReader(expected), "medicai_scanner_tick_failures_total"))
}

func TestTickUsesConfiguredZone(t *testing.T) {
	loc := time.FixedZone("CLT", -3*60*60)
	reminders := reminder.NewDirectory()
	out := messaging.NewMockService()
	s := New(reminders, store.NewInMemoryStore(), out, clock.Fixed(base), WithLocation(loc))
	reminders.Register(user, "Losartan", []string{"06:30"})

	// 09:30 UTC is 06:30 at UTC-3.
	require.NoError(t, s.Tick(context.Background(), base))
	assert.Len(t, out.Texts(user), 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.scanner.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
