package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/normalize"
)

const pickupColumns = `id, user_id, drug, date, hour, recurrence_days, status, created_at`

// nameKey is the lookup key for medication and pickup names. SQLite's lower()
// folds ASCII only, so keys are computed here and matched with '='.
func nameKey(name string) string {
	return normalize.Text(strings.TrimSpace(name))
}

// sqlBackend holds the queries shared by the SQLite and Postgres stores.
// Queries are written with '?' placeholders and rebound for the driver.
type sqlBackend struct {
	db   *sqlx.DB
	name string // log prefix, e.g. "SQLiteStore"
}

func (b *sqlBackend) q(query string) string {
	return b.db.Rebind(query)
}

// Ping checks the database connection.
func (b *sqlBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (b *sqlBackend) Close() error {
	slog.Debug(b.name+".Close: closing database")
	return b.db.Close()
}

func (b *sqlBackend) AddStock(ctx context.Context, name string, qty int, location *string, price *int) (models.Medication, error) {
	return b.adjustStock(ctx, name, qty, location, price)
}

func (b *sqlBackend) DecrementStock(ctx context.Context, name string, qty int) (models.Medication, error) {
	if qty < 0 {
		qty = -qty
	}
	return b.adjustStock(ctx, name, -qty, nil, nil)
}

// adjustStock applies delta to the stock of name inside one transaction,
// creating the record on first mutation. The result never drops below zero.
func (b *sqlBackend) adjustStock(ctx context.Context, name string, delta int, location *string, price *int) (models.Medication, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Medication{}, fmt.Errorf("medication name cannot be empty")
	}
	key := nameKey(name)

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		slog.Error(b.name+".adjustStock begin failed", "error", err, "name", name)
		return models.Medication{}, fmt.Errorf("failed to begin stock transaction: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.GetContext(ctx, &existing, b.q(`SELECT name FROM meds WHERE name_key = ?`), key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			b.q(`INSERT INTO meds (name, name_key, stock, location, price) VALUES (?, ?, ?, ?, ?)`),
			name, key, max(0, delta), location, price)
		if err != nil {
			slog.Error(b.name+".adjustStock insert failed", "error", err, "name", name)
			return models.Medication{}, fmt.Errorf("failed to insert medication %s: %w", name, err)
		}
	case err != nil:
		slog.Error(b.name+".adjustStock lookup failed", "error", err, "name", name)
		return models.Medication{}, fmt.Errorf("failed to look up medication %s: %w", name, err)
	default:
		_, err = tx.ExecContext(ctx, b.q(`
			UPDATE meds SET
				stock = CASE WHEN stock + ? < 0 THEN 0 ELSE stock + ? END,
				location = COALESCE(?, location),
				price = COALESCE(?, price)
			WHERE name_key = ?`),
			delta, delta, location, price, key)
		if err != nil {
			slog.Error(b.name+".adjustStock update failed", "error", err, "name", name)
			return models.Medication{}, fmt.Errorf("failed to update medication %s: %w", name, err)
		}
	}

	var med models.Medication
	if err := tx.GetContext(ctx, &med, b.q(`SELECT name, stock, location, price FROM meds WHERE name_key = ?`), key); err != nil {
		return models.Medication{}, fmt.Errorf("failed to reload medication %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		slog.Error(b.name+".adjustStock commit failed", "error", err, "name", name)
		return models.Medication{}, fmt.Errorf("failed to commit stock change: %w", err)
	}
	slog.Debug(b.name+".adjustStock succeeded", "name", med.Name, "delta", delta, "stock", med.Stock)
	return med, nil
}

func (b *sqlBackend) GetMedication(ctx context.Context, name string) (models.Medication, error) {
	var med models.Medication
	err := b.db.GetContext(ctx, &med,
		b.q(`SELECT name, stock, location, price FROM meds WHERE name_key = ?`),
		nameKey(name))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Medication{}, ErrNotFound
	}
	if err != nil {
		slog.Error(b.name+".GetMedication failed", "error", err, "name", name)
		return models.Medication{}, fmt.Errorf("failed to get medication %s: %w", name, err)
	}
	return med, nil
}

func (b *sqlBackend) SchedulePickup(ctx context.Context, userID, drug, date, hour string, recurrenceDays int) (models.Pickup, error) {
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
	if err := b.insertPickup(ctx, b.db, p); err != nil {
		slog.Error(b.name+".SchedulePickup failed", "error", err, "user_id", userID, "drug", drug)
		return models.Pickup{}, fmt.Errorf("failed to schedule pickup: %w", err)
	}
	slog.Debug(b.name+".SchedulePickup succeeded", "id", p.ID, "user_id", userID, "drug", p.Drug, "date", date, "hour", hour, "recurrence_days", recurrenceDays)
	return p, nil
}

func (b *sqlBackend) insertPickup(ctx context.Context, e sqlx.ExecerContext, p models.Pickup) error {
	_, err := e.ExecContext(ctx, b.q(`
		INSERT INTO pickups (`+pickupColumns+`, drug_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.UserID, p.Drug, p.Date, p.Hour, p.RecurrenceDays, p.Status, p.CreatedAt, nameKey(p.Drug))
	return err
}

func (b *sqlBackend) NextPickup(ctx context.Context, userID, drug string) (models.Pickup, error) {
	return b.nextPickup(ctx, b.db, userID, drug)
}

func (b *sqlBackend) nextPickup(ctx context.Context, q sqlx.QueryerContext, userID, drug string) (models.Pickup, error) {
	var p models.Pickup
	err := sqlx.GetContext(ctx, q, &p, b.q(`
		SELECT `+pickupColumns+` FROM pickups
		WHERE user_id = ? AND drug_key = ? AND status = ?
		ORDER BY date ASC, hour ASC, created_at ASC
		LIMIT 1`),
		userID, nameKey(drug), models.PickupPending)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Pickup{}, ErrNotFound
	}
	if err != nil {
		return models.Pickup{}, fmt.Errorf("failed to find pending pickup: %w", err)
	}
	return p, nil
}

// ClosePickup closes the earliest pending pickup of drug. Completing a
// recurring pickup schedules the successor at date + interval in the same
// transaction.
func (b *sqlBackend) ClosePickup(ctx context.Context, userID, drug string, done bool) (PickupTransition, error) {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		slog.Error(b.name+".ClosePickup begin failed", "error", err)
		return PickupTransition{}, fmt.Errorf("failed to begin pickup transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := b.nextPickup(ctx, tx, userID, drug)
	if err != nil {
		return PickupTransition{}, err
	}

	status := models.PickupMissed
	if done {
		status = models.PickupDone
	}
	if _, err := tx.ExecContext(ctx, b.q(`UPDATE pickups SET status = ? WHERE id = ?`), status, current.ID); err != nil {
		slog.Error(b.name+".ClosePickup update failed", "error", err, "id", current.ID)
		return PickupTransition{}, fmt.Errorf("failed to update pickup %s: %w", current.ID, err)
	}
	current.Status = status
	result := PickupTransition{Closed: current}

	if interval := current.Interval(); done && interval > 0 {
		day, err := time.Parse(models.DateLayout, current.Date)
		if err != nil {
			return PickupTransition{}, fmt.Errorf("stored pickup %s has invalid date %q: %w", current.ID, current.Date, err)
		}
		next := models.Pickup{
			ID:             uuid.NewString(),
			UserID:         current.UserID,
			Drug:           current.Drug,
			Date:           day.AddDate(0, 0, interval).Format(models.DateLayout),
			Hour:           current.Hour,
			RecurrenceDays: current.RecurrenceDays,
			Status:         models.PickupPending,
			CreatedAt:      time.Now().UTC(),
		}
		if err := b.insertPickup(ctx, tx, next); err != nil {
			slog.Error(b.name+".ClosePickup insert next failed", "error", err, "id", current.ID)
			return PickupTransition{}, fmt.Errorf("failed to schedule next pickup: %w", err)
		}
		result.Next = &next
	}

	if err := tx.Commit(); err != nil {
		slog.Error(b.name+".ClosePickup commit failed", "error", err, "id", current.ID)
		return PickupTransition{}, fmt.Errorf("failed to commit pickup transition: %w", err)
	}
	slog.Debug(b.name+".ClosePickup succeeded", "id", current.ID, "status", status, "next_scheduled", result.Next != nil)
	return result, nil
}

func (b *sqlBackend) MarkMissed(ctx context.Context, id string) (bool, error) {
	res, err := b.db.ExecContext(ctx,
		b.q(`UPDATE pickups SET status = ? WHERE id = ? AND status = ?`),
		models.PickupMissed, id, models.PickupPending)
	if err != nil {
		slog.Error(b.name+".MarkMissed failed", "error", err, "id", id)
		return false, fmt.Errorf("failed to mark pickup %s missed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (b *sqlBackend) ListPickups(ctx context.Context, userID string) ([]models.Pickup, error) {
	var pickups []models.Pickup
	err := b.db.SelectContext(ctx, &pickups, b.q(`
		SELECT `+pickupColumns+` FROM pickups
		WHERE user_id = ?
		ORDER BY date ASC, hour ASC, created_at ASC`), userID)
	if err != nil {
		slog.Error(b.name+".ListPickups failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list pickups: %w", err)
	}
	slog.Debug(b.name+".ListPickups succeeded", "user_id", userID, "count", len(pickups))
	return pickups, nil
}

func (b *sqlBackend) PendingPickups(ctx context.Context) ([]models.Pickup, error) {
	var pickups []models.Pickup
	err := b.db.SelectContext(ctx, &pickups, b.q(`
		SELECT `+pickupColumns+` FROM pickups
		WHERE status = ?
		ORDER BY date ASC, hour ASC`), models.PickupPending)
	if err != nil {
		slog.Error(b.name+".PendingPickups failed", "error", err)
		return nil, fmt.Errorf("failed to list pending pickups: %w", err)
	}
	return pickups, nil
}

func (b *sqlBackend) RecordInbound(ctx context.Context, messageID, userID string) (bool, error) {
	res, err := b.db.ExecContext(ctx, b.q(`
		INSERT INTO inbound_dedup (message_id, user_id, received_at) VALUES (?, ?, ?)
		ON CONFLICT (message_id) DO NOTHING`),
		messageID, userID, time.Now().UTC())
	if err != nil {
		slog.Error(b.name+".RecordInbound failed", "error", err, "message_id", messageID)
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	return n == 1, nil
}

func (b *sqlBackend) MarkProcessed(ctx context.Context, messageID string) error {
	_, err := b.db.ExecContext(ctx,
		b.q(`UPDATE inbound_dedup SET processed_at = ? WHERE message_id = ?`),
		time.Now().UTC(), messageID)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

func (b *sqlBackend) GetDedupRecord(ctx context.Context, messageID string) (DedupRecord, error) {
	var rec DedupRecord
	err := b.db.GetContext(ctx, &rec,
		b.q(`SELECT message_id, user_id, received_at, processed_at FROM inbound_dedup WHERE message_id = ?`),
		messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return DedupRecord{}, ErrNotFound
	}
	if err != nil {
		return DedupRecord{}, fmt.Errorf("dedup lookup failed: %w", err)
	}
	return rec, nil
}
