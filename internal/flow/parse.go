package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/normalize"
)

// DefaultFrequencyDays and DefaultHour apply when the user's answer cannot be parsed.
const (
	DefaultFrequencyDays = 30
	DefaultHour          = "08:00"
)

var (
	daysPattern = regexp.MustCompile(`(\d+)\s*dias`)
	timePattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// dateLayouts are the accepted input formats for explicit dates.
var dateLayouts = []string{models.DateLayout, "02-01-2006", "02/01/2006"}

// ParseFrequencyDays reads a pickup frequency such as "cada 30 días".
func ParseFrequencyDays(text string) int {
	t := normalize.Text(text)
	switch {
	case strings.Contains(t, "30"):
		return 30
	case strings.Contains(t, "15"):
		return 15
	}
	if m := daysPattern.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return max(1, n)
		}
	}
	return DefaultFrequencyDays
}

// ExtractTimes returns every HH:MM time of day in text, zero-padded, in
// order of appearance. Out-of-range values such as "25:00" are skipped.
func ExtractTimes(text string) []string {
	var out []string
	for _, m := range timePattern.FindAllStringSubmatch(text, -1) {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if h > 23 || mm > 59 {
			continue
		}
		out = append(out, fmt.Sprintf("%02d:%02d", h, mm))
	}
	return out
}

// HourOrDefault returns the first time of day in text, or def.
func HourOrDefault(text, def string) string {
	if times := ExtractTimes(text); len(times) > 0 {
		return times[0]
	}
	return def
}

// ParseDate accepts YYYY-MM-DD, DD-MM-YYYY or DD/MM/YYYY and returns the
// date in YYYY-MM-DD form.
func ParseDate(text string) (string, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, strings.TrimSpace(text)); err == nil {
			return d.Format(models.DateLayout), true
		}
	}
	return "", false
}
