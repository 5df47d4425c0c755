package models

import "time"

// PickupStatus is the lifecycle state of a pharmacy pickup.
type PickupStatus string

const (
	PickupPending PickupStatus = "pending"
	PickupDone    PickupStatus = "done"
	PickupMissed  PickupStatus = "missed"
)

// DateLayout and HourLayout are the persisted formats of Pickup.Date and Pickup.Hour.
const (
	DateLayout = "2006-01-02"
	HourLayout = "15:04"
)

// Pickup is a scheduled medication retrieval. RecurrenceDays is nil for a
// one-shot pickup.
type Pickup struct {
	ID             string       `json:"id" db:"id"`
	UserID         string       `json:"user_id" db:"user_id"`
	Drug           string       `json:"drug" db:"drug"`
	Date           string       `json:"date" db:"date"`
	Hour           string       `json:"hour" db:"hour"`
	RecurrenceDays *int         `json:"recurrence_days,omitempty" db:"recurrence_days"`
	Status         PickupStatus `json:"status" db:"status"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

// Interval returns the recurrence interval in days, or 0 for one-shot pickups.
func (p Pickup) Interval() int {
	if p.RecurrenceDays == nil {
		return 0
	}
	return *p.RecurrenceDays
}

// Day parses Date as a calendar day in loc.
func (p Pickup) Day(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, p.Date, loc)
}

// Medication is a stock record. Location and Price are optional.
type Medication struct {
	Name     string  `json:"name" db:"name"`
	Stock    int     `json:"stock" db:"stock"`
	Location *string `json:"location,omitempty" db:"location"`
	Price    *int    `json:"price,omitempty" db:"price"`
}
