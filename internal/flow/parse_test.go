package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFrequencyDays(t *testing.T) {
	cases := map[string]int{
		"cada 30 dias":    30,
		"Cada 30 días":    30,
		"cada 15 dias":    15,
		"cada 10 dias":    10,
		"cada 7 días":     7,
		"cada 0 dias":     1,
		"otra frecuencia": 30,
		"mensual":         30,
		"":                30,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseFrequencyDays(in), "ParseFrequencyDays(%q)", in)
	}
}

func TestExtractTimes(t *testing.T) {
	assert.Equal(t, []string{"08:00", "20:00"}, ExtractTimes("recuérdame a las 8:00 y 20:00"))
	assert.Equal(t, []string{"08:00", "14:00", "20:00"}, ExtractTimes("08:00, 14:00, 20:00"))
	assert.Equal(t, []string{"07:30"}, ExtractTimes("a las 25:00 o 7:30"))
	assert.Empty(t, ExtractTimes("en la mañana y en la noche"))
}

func TestHourOrDefault(t *testing.T) {
	assert.Equal(t, "09:15", HourOrDefault("a las 9:15 por favor", DefaultHour))
	assert.Equal(t, "08:00", HourOrDefault("temprano", DefaultHour))
}

func TestParseDate(t *testing.T) {
	cases := map[string]string{
		"2025-10-01": "2025-10-01",
		"01-10-2025": "2025-10-01",
		"01/10/2025": "2025-10-01",
	}
	for in, want := range cases {
		got, ok := ParseDate(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseDate("mañana")
	assert.False(t, ok)
	_, ok = ParseDate("2025-13-01")
	assert.False(t, ok)
}
