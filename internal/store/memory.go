package store

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
)

// InMemoryStore is a Store kept in process memory. It mirrors the SQL
// backends and is meant for tests and local experiments; nothing survives a
// restart.
type InMemoryStore struct {
	mu      sync.Mutex
	meds    map[string]models.Medication // keyed by nameKey
	pickups []models.Pickup
	dedup   map[string]DedupRecord
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		meds:  make(map[string]models.Medication),
		dedup: make(map[string]DedupRecord),
	}
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) AddStock(_ context.Context, name string, qty int, location *string, price *int) (models.Medication, error) {
	return s.adjustStock(name, qty, location, price)
}

func (s *InMemoryStore) DecrementStock(_ context.Context, name string, qty int) (models.Medication, error) {
	if qty < 0 {
		qty = -qty
	}
	return s.adjustStock(name, -qty, nil, nil)
}

func (s *InMemoryStore) adjustStock(name string, delta int, location *string, price *int) (models.Medication, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Medication{}, fmt.Errorf("medication name cannot be empty")
	}
	key := nameKey(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	med, ok := s.meds[key]
	if !ok {
		med = models.Medication{Name: name}
	}
	med.Stock = max(0, med.Stock+delta)
	if location != nil {
		med.Location = location
	}
	if price != nil {
		med.Price = price
	}
	s.meds[key] = med
	slog.Debug("InMemoryStore.adjustStock succeeded", "name", med.Name, "delta", delta, "stock", med.Stock)
	return med, nil
}

func (s *InMemoryStore) GetMedication(_ context.Context, name string) (models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	med, ok := s.meds[nameKey(name)]
	if !ok {
		return models.Medication{}, ErrNotFound
	}
	return med, nil
}

func (s *InMemoryStore) SchedulePickup(_ context.Context, userID, drug, date, hour string, recurrenceDays int) (models.Pickup, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return models.Pickup{}, fmt.Errorf("invalid pickup date %q: %w", date, err)
	}
	if _, err := time.Parse(models.HourLayout, hour); err != nil {
		return models.Pickup{}, fmt.Errorf("invalid pickup hour %q: %w", hour, err)
	}
	p := models.Pickup{
		ID:        uuid.NewString(),
		UserID:    userID,
		Drug:      strings.TrimSpace(drug),
		Date:      date,
		Hour:      hour,
		Status:    models.PickupPending,
		CreatedAt: time.Now().UTC(),
	}
	if recurrenceDays > 0 {
		p.RecurrenceDays = &recurrenceDays
	}

	s.mu.Lock()
	s.pickups = append(s.pickups, p)
	s.mu.Unlock()
	return p, nil
}

func (s *InMemoryStore) NextPickup(_ context.Context, userID, drug string) (models.Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.nextPickupIndex(userID, drug)
	if i < 0 {
		return models.Pickup{}, ErrNotFound
	}
	return s.pickups[i], nil
}

// nextPickupIndex returns the index of the earliest pending pickup, or -1.
// Callers hold mu.
func (s *InMemoryStore) nextPickupIndex(userID, drug string) int {
	key := nameKey(drug)
	best := -1
	for i, p := range s.pickups {
		if p.UserID != userID || nameKey(p.Drug) != key || p.Status != models.PickupPending {
			continue
		}
		if best < 0 || comparePickups(p, s.pickups[best]) < 0 {
			best = i
		}
	}
	return best
}

func (s *InMemoryStore) ClosePickup(_ context.Context, userID, drug string, done bool) (PickupTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.nextPickupIndex(userID, drug)
	if i < 0 {
		return PickupTransition{}, ErrNotFound
	}
	current := s.pickups[i]
	current.Status = models.PickupMissed
	if done {
		current.Status = models.PickupDone
	}
	result := PickupTransition{Closed: current}

	if interval := current.Interval(); done && interval > 0 {
		day, err := time.Parse(models.DateLayout, current.Date)
		if err != nil {
			return PickupTransition{}, fmt.Errorf("stored pickup %s has invalid date %q: %w", current.ID, current.Date, err)
		}
		next := current
		next.ID = uuid.NewString()
		next.Date = day.AddDate(0, 0, interval).Format(models.DateLayout)
		next.Status = models.PickupPending
		next.CreatedAt = time.Now().UTC()
		s.pickups = append(s.pickups, next)
		result.Next = &next
	}
	s.pickups[i] = current
	return result, nil
}

func (s *InMemoryStore) MarkMissed(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pickups {
		if s.pickups[i].ID == id && s.pickups[i].Status == models.PickupPending {
			s.pickups[i].Status = models.PickupMissed
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) ListPickups(_ context.Context, userID string) ([]models.Pickup, error) {
	return s.filter(func(p models.Pickup) bool { return p.UserID == userID }), nil
}

func (s *InMemoryStore) PendingPickups(context.Context) ([]models.Pickup, error) {
	return s.filter(func(p models.Pickup) bool { return p.Status == models.PickupPending }), nil
}

func (s *InMemoryStore) filter(keep func(models.Pickup) bool) []models.Pickup {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Pickup
	for _, p := range s.pickups {
		if keep(p) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, comparePickups)
	return out
}

func comparePickups(a, b models.Pickup) int {
	return cmp.Or(
		cmp.Compare(a.Date, b.Date),
		cmp.Compare(a.Hour, b.Hour),
		a.CreatedAt.Compare(b.CreatedAt),
	)
}

func (s *InMemoryStore) RecordInbound(_ context.Context, messageID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dedup[messageID]; ok {
		return false, nil
	}
	s.dedup[messageID] = DedupRecord{MessageID: messageID, UserID: userID, ReceivedAt: time.Now().UTC()}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.dedup[messageID]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	rec.ProcessedAt = &now
	s.dedup[messageID] = rec
	return nil
}

func (s *InMemoryStore) GetDedupRecord(_ context.Context, messageID string) (DedupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.dedup[messageID]
	if !ok {
		return DedupRecord{}, ErrNotFound
	}
	return rec, nil
}
