// Package store provides the durable storage backends for MedicAI.
//
// Two backends share one SQL implementation: SQLite for single-host
// deployments and PostgreSQL. Both hold the medication stock table, the
// pharmacy pickup schedule and the inbound message de-duplication table.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string // Data source name: a file path for SQLite, a connection string for Postgres
}

// Option configures a store.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType returns the database/sql driver name for dsn: "postgres" for
// URLs and key/value connection strings, "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname="):
		return "postgres"
	default:
		return "sqlite3"
	}
}

// MedRepo manages the medication stock table.
type MedRepo interface {
	// AddStock increments the stock of name, creating the record when it does
	// not exist. A nil location or price keeps the stored value.
	AddStock(ctx context.Context, name string, qty int, location *string, price *int) (models.Medication, error)
	// DecrementStock lowers the stock of name, clamping at zero.
	DecrementStock(ctx context.Context, name string, qty int) (models.Medication, error)
	// GetMedication returns ErrNotFound for unknown names.
	GetMedication(ctx context.Context, name string) (models.Medication, error)
}

// PickupRepo manages the pharmacy pickup schedule.
type PickupRepo interface {
	// SchedulePickup creates a pending pickup. recurrenceDays <= 0 makes it one-shot.
	SchedulePickup(ctx context.Context, userID, drug, date, hour string, recurrenceDays int) (models.Pickup, error)
	// NextPickup returns the earliest pending pickup of drug for userID.
	NextPickup(ctx context.Context, userID, drug string) (models.Pickup, error)
	// ClosePickup moves the earliest pending pickup of drug to done or missed.
	ClosePickup(ctx context.Context, userID, drug string, done bool) (PickupTransition, error)
	// MarkMissed moves a pending pickup to missed. It reports false when the
	// pickup was no longer pending.
	MarkMissed(ctx context.Context, id string) (bool, error)
	// ListPickups returns every pickup of userID ordered by date.
	ListPickups(ctx context.Context, userID string) ([]models.Pickup, error)
	// PendingPickups returns every pending pickup ordered by date.
	PendingPickups(ctx context.Context) ([]models.Pickup, error)
}

// PickupTransition is the outcome of ClosePickup. Next is set when a
// recurring pickup was completed and its successor scheduled.
type PickupTransition struct {
	Closed models.Pickup
	Next   *models.Pickup
}

// Store is the full persistence surface used by the service.
type Store interface {
	MedRepo
	PickupRepo
	DedupRepo
	Ping(ctx context.Context) error
	Close() error
}

// New opens the backend selected by the DSN.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		return NewPostgresStore(opts...)
	}
	return NewSQLiteStore(opts...)
}
