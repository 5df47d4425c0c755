package reminder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	require.NoError(t, err)
	return ts
}

func TestDue_FiresOncePerMinute(t *testing.T) {
	d := NewDirectory()
	d.Register("u1", "losartan", []string{"08:00", "20:00"})

	due := d.Due(at(t, "2025-10-01 08:00:05"))
	require.Len(t, due, 1)
	assert.Equal(t, Due{UserID: "u1", Name: "losartan", Time: "08:00"}, due[0])

	assert.Empty(t, d.Due(at(t, "2025-10-01 08:00:40")), "same minute must not fire twice")
	assert.Empty(t, d.Due(at(t, "2025-10-01 08:01:00")))

	// Next day, same minute.
	assert.Len(t, d.Due(at(t, "2025-10-02 08:00:00")), 1)
	assert.Len(t, d.Due(at(t, "2025-10-02 20:00:00")), 1)
}

func TestRegister_UpsertClearsLastFired(t *testing.T) {
	d := NewDirectory()
	d.Register("u1", "metformina", []string{"09:00"})
	require.Len(t, d.Due(at(t, "2025-10-01 09:00:00")), 1)

	d.Register("u1", "metformina", []string{"09:00", "21:00", "09:00"})
	list := d.List("u1")
	require.Len(t, list, 1)
	assert.Equal(t, []string{"09:00", "21:00"}, list[0].Times)
	assert.True(t, list[0].LastFired.IsZero())

	assert.Len(t, d.Due(at(t, "2025-10-01 09:00:30")), 1, "re-registered reminder fires again")
}

func TestRemove(t *testing.T) {
	d := NewDirectory()
	d.Register("u1", "a", []string{"08:00"})
	d.Register("u1", "b", []string{"09:00"})

	_, err := d.Remove("u1", 0)
	assert.True(t, errors.Is(err, ErrInvalidIndex))
	_, err = d.Remove("u1", 3)
	assert.True(t, errors.Is(err, ErrInvalidIndex))

	removed, err := d.Remove("u1", 1)
	require.NoError(t, err)
	assert.Equal(t, "a", removed.Name)
	assert.Equal(t, 1, d.Users())

	_, err = d.Remove("u1", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Users(), "removing the last entry forgets the user")
	assert.Empty(t, d.List("u1"))
}

func TestList_ReturnsCopy(t *testing.T) {
	d := NewDirectory()
	d.Register("u1", "a", []string{"08:00"})
	list := d.List("u1")
	list[0].Times[0] = "23:59"
	list[0].Name = "changed"

	again := d.List("u1")
	assert.Equal(t, "a", again[0].Name)
	assert.Equal(t, []string{"08:00"}, again[0].Times)
}
