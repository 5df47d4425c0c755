package store

import (
	"context"
	"time"
)

// DedupRecord represents an inbound message deduplication record.
type DedupRecord struct {
	MessageID   string     `json:"message_id" db:"message_id"`
	UserID      string     `json:"user_id" db:"user_id"`
	ReceivedAt  time.Time  `json:"received_at" db:"received_at"`
	ProcessedAt *time.Time `json:"processed_at" db:"processed_at"`
}

// DedupRepo defines the interface for inbound message deduplication.
// Webhook providers retry deliveries, so the same message id can arrive more
// than once.
type DedupRepo interface {
	// RecordInbound inserts a new inbound message record. Returns false if the
	// message was already recorded (duplicate).
	RecordInbound(ctx context.Context, messageID, userID string) (bool, error)

	// MarkProcessed sets the processed_at timestamp for a message.
	MarkProcessed(ctx context.Context, messageID string) error

	// GetDedupRecord returns ErrNotFound for unknown ids.
	GetDedupRecord(ctx context.Context, messageID string) (DedupRecord, error)
}
