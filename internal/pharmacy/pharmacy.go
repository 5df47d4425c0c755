// Package pharmacy answers medication availability questions.
package pharmacy

import (
	"context"
	"strings"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/normalize"
)

// Availability is the stock status reported by a pharmacy system.
type Availability string

const (
	Available Availability = "available"
	Low       Availability = "low"
	None      Availability = "none"
	Unknown   Availability = "unknown"
)

// Lookup reports the availability of a drug. Implementations return Unknown
// when the backing system cannot answer; that is not an error.
type Lookup interface {
	Availability(ctx context.Context, drug string) Availability
}

// StubLookup is the offline lookup used until a pharmacy system is connected.
type StubLookup struct{}

var (
	stubAvailable = []string{"paracetamol", "metformina", "losartan"}
	stubLow       = []string{"amoxicilina"}
)

func (StubLookup) Availability(_ context.Context, drug string) Availability {
	name := normalize.Text(drug)
	for _, k := range stubAvailable {
		if strings.Contains(name, k) {
			return Available
		}
	}
	for _, k := range stubLow {
		if strings.Contains(name, k) {
			return Low
		}
	}
	return Unknown
}
