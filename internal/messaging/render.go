package messaging

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/patrickmn/go-cache"
)

// DefaultOptionTTL is how long a numbered menu stays answerable.
const DefaultOptionTTL = 30 * time.Minute

// NumberHint closes every numbered menu on text-only backends.
const NumberHint = "Responde con el número de tu opción."

// RenderText renders an interactive message as numbered text for backends
// without buttons or lists.
func RenderText(m models.Message) string {
	if m.Kind != models.MessageKindButtons && m.Kind != models.MessageKindList {
		return m.Body
	}
	var b strings.Builder
	b.WriteString(m.Body)
	b.WriteString("\n")
	for i, opt := range m.Options {
		fmt.Fprintf(&b, "\n%d. %s", i+1, opt)
	}
	if m.Footer != "" {
		fmt.Fprintf(&b, "\n\n_%s_", m.Footer)
	}
	b.WriteString("\n\n")
	b.WriteString(NumberHint)
	return b.String()
}

// OptionMemory remembers the last numbered menu sent to each user so that a
// bare number in the reply resolves to the option id an interactive backend
// would have delivered.
type OptionMemory struct {
	c *cache.Cache
}

// NewOptionMemory creates a memory whose menus expire after ttl.
func NewOptionMemory(ttl time.Duration) *OptionMemory {
	if ttl <= 0 {
		ttl = DefaultOptionTTL
	}
	return &OptionMemory{c: cache.New(ttl, 2*ttl)}
}

// Remember stores the option ids of m for user. A plain text message
// forgets the previous menu, so a number typed at a free-text prompt stays
// literal. Reactions and read receipts leave the memory alone.
func (o *OptionMemory) Remember(user string, m models.Message) {
	switch m.Kind {
	case models.MessageKindButtons, models.MessageKindList:
	case models.MessageKindText:
		o.c.Delete(user)
		return
	default:
		return
	}
	ids := make([]string, len(m.Options))
	for i := range m.Options {
		ids[i] = m.OptionID(i + 1)
	}
	o.c.SetDefault(user, ids)
}

// Resolve maps a bare 1-based number to the remembered option id. Any other
// text is returned unchanged.
func (o *OptionMemory) Resolve(user, text string) string {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return text
	}
	v, ok := o.c.Get(user)
	if !ok {
		return text
	}
	ids := v.([]string)
	if n < 1 || n > len(ids) {
		return text
	}
	return ids[n-1]
}
