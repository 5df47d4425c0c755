// Package scanner runs the minute-by-minute background pass that sends due
// medication reminders and advances the pharmacy pickup lifecycle.
//
// Each tick, evaluated in the configured zone:
//
//  1. reminders whose HH:MM equals the current minute fire once;
//  2. pending pickups exactly three days ahead get a pre-notice at their hour;
//  3. pending pickups dated today get the due-day prompt at their hour;
//  4. pending pickups exactly seven days past are marked missed, the user is
//     told once and staff are e-mailed when an address is configured.
//
// Pre-notice and due-day sends are de-duplicated per pickup, kind and minute.
// A failed send is logged and skipped. A store failure abandons the rest of
// the tick.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/clock"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/messaging"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/metrics"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/notify"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/reminder"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/scheduler"
	"github.com/patrickmn/go-cache"
)

// Notification kinds, used for de-duplication keys and metrics labels.
const (
	KindReminder  = "reminder"
	KindPreNotice = "pre_notice"
	KindDueDay    = "due_day"
	KindAutoMiss  = "auto_miss"
)

// Lifecycle offsets in calendar days.
const (
	PreNoticeDays = 3
	AutoMissDays  = 7
)

// DefaultStopTimeout bounds how long Run waits for a running tick on shutdown.
const DefaultStopTimeout = 10 * time.Second

// PickupRepo is the part of the store the scanner needs.
type PickupRepo interface {
	PendingPickups(ctx context.Context) ([]models.Pickup, error)
	MarkMissed(ctx context.Context, id string) (bool, error)
}

// Opts holds configuration options for a Scanner.
type Opts struct {
	Location   *time.Location
	Metrics    *metrics.Metrics
	Email      notify.EmailSender
	StaffEmail string
}

// Option configures a Scanner.
type Option func(*Opts)

// WithLocation evaluates reminder times and pickup dates in loc.
func WithLocation(loc *time.Location) Option {
	return func(o *Opts) { o.Location = loc }
}

// WithMetrics counts notifications and abandoned ticks.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Opts) { o.Metrics = m }
}

// WithStaffEmail e-mails addr through sender whenever a pickup is auto-missed.
func WithStaffEmail(addr string, sender notify.EmailSender) Option {
	return func(o *Opts) {
		o.StaffEmail = addr
		o.Email = sender
	}
}

// Scanner fires reminders and pickup notifications.
type Scanner struct {
	reminders *reminder.Directory
	pickups   PickupRepo
	sender    messaging.Sender
	clock     clock.Clock
	loc       *time.Location
	metrics   *metrics.Metrics
	email     notify.EmailSender
	staff     string
	sent      *cache.Cache
}

// New creates a scanner. clk supplies the time for Run; Tick takes it explicitly.
func New(reminders *reminder.Directory, pickups PickupRepo, sender messaging.Sender, clk clock.Clock, opts ...Option) *Scanner {
	cfg := Opts{Location: time.UTC}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scanner{
		reminders: reminders,
		pickups:   pickups,
		sender:    sender,
		clock:     clk,
		loc:       cfg.Location,
		metrics:   cfg.Metrics,
		email:     cfg.Email,
		staff:     cfg.StaffEmail,
		sent:      cache.New(2*time.Minute, 5*time.Minute),
	}
}

// Run schedules Tick on every minute boundary until ctx is canceled.
func (s *Scanner) Run(ctx context.Context) error {
	sched := scheduler.NewScheduler(scheduler.WithLocation(s.loc))
	err := sched.AddJob("scanner", scheduler.EveryMinute, func() {
		if err := s.Tick(ctx, s.clock.Now()); err != nil {
			slog.ErrorContext(ctx, "Scanner.Run: tick abandoned", "error", err)
		}
	})
	if err != nil {
		sched.Stop(ctx)
		return fmt.Errorf("failed to schedule scanner: %w", err)
	}
	slog.Info("Scanner.Run: started", "location", s.loc)

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), DefaultStopTimeout)
	defer cancel()
	sched.Stop(stopCtx)
	slog.Info("Scanner.Run: stopped")
	return nil
}

// Tick runs one pass at now. It returns an error only when the store failed.
func (s *Scanner) Tick(ctx context.Context, now time.Time) error {
	now = now.In(s.loc)
	s.fireReminders(ctx, now)

	pending, err := s.pickups.PendingPickups(ctx)
	if err != nil {
		s.metrics.ObserveTickFailure()
		return fmt.Errorf("failed to load pending pickups: %w", err)
	}

	hhmm := now.Format(models.HourLayout)
	today := clock.Midnight(now)
	for _, p := range pending {
		day, err := p.Day(s.loc)
		if err != nil {
			slog.Warn("Scanner.Tick: skipping pickup with invalid date", "id", p.ID, "date", p.Date, "error", err)
			continue
		}
		switch ahead := clock.DaysBetween(today, day); {
		case ahead == PreNoticeDays && p.Hour == hhmm:
			s.notifyOnce(ctx, now, p, KindPreNotice, fmt.Sprintf(
				"📢 En 3 días te corresponde retirar: *%s*. ¿Quieres que te recuerde el mismo día a las %s?", p.Drug, p.Hour))
		case ahead == 0 && p.Hour == hhmm:
			s.notifyOnce(ctx, now, p, KindDueDay, fmt.Sprintf(
				"🚨 *Hoy corresponde retirar* *%s*.\nResponde: *retire %s si* o *retire %s no*.", p.Drug, p.Drug, p.Drug))
		case ahead == -AutoMissDays:
			if err := s.autoMiss(ctx, p); err != nil {
				s.metrics.ObserveTickFailure()
				return err
			}
		}
	}
	return nil
}

func (s *Scanner) fireReminders(ctx context.Context, now time.Time) {
	for _, d := range s.reminders.Due(now) {
		msg := fmt.Sprintf("⏰ *Recordatorio de medicamento*\nEs hora de tomar: *%s*.", d.Name)
		s.send(ctx, d.UserID, KindReminder, msg)
	}
}

func (s *Scanner) notifyOnce(ctx context.Context, now time.Time, p models.Pickup, kind, body string) {
	key := p.ID + "|" + kind + "|" + now.Truncate(time.Minute).Format(time.RFC3339)
	if err := s.sent.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		slog.Debug("Scanner.Tick: already notified this minute", "id", p.ID, "kind", kind)
		return
	}
	s.send(ctx, p.UserID, kind, body)
}

func (s *Scanner) autoMiss(ctx context.Context, p models.Pickup) error {
	changed, err := s.pickups.MarkMissed(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to mark pickup %s missed: %w", p.ID, err)
	}
	if !changed {
		return nil
	}
	slog.Info("Scanner.Tick: pickup marked missed", "id", p.ID, "user", p.UserID, "drug", p.Drug, "date", p.Date)
	s.send(ctx, p.UserID, KindAutoMiss, fmt.Sprintf("⚠️ No registras el retiro de *%s*. ¿Reprogramo una nueva fecha?", p.Drug))

	if s.email == nil || s.staff == "" {
		return nil
	}
	msg := notify.EmailMessage{
		To:      s.staff,
		Subject: fmt.Sprintf("MedicAI: retiro no registrado de %s", p.Drug),
		Body: fmt.Sprintf("El usuario %s no registró el retiro de %s programado para el %s a las %s.\nEl retiro quedó marcado como no realizado.",
			p.UserID, p.Drug, p.Date, p.Hour),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		slog.Error("Scanner.Tick: staff email failed", "id", p.ID, "error", err)
	}
	return nil
}

func (s *Scanner) send(ctx context.Context, user, kind, body string) {
	if err := s.sender.Send(ctx, user, models.Text(body)); err != nil {
		slog.Error("Scanner.Tick: send failed", "user", user, "kind", kind, "error", err)
		return
	}
	s.metrics.ObserveNotification(kind)
	slog.Debug("Scanner.Tick: notification sent", "user", user, "kind", kind)
}
