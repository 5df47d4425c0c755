// Package reminder holds the per-user medication reminder directory.
package reminder

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// ErrInvalidIndex is returned by Remove for a position outside the user's list.
var ErrInvalidIndex = errors.New("invalid reminder index")

// Entry is one medication with its daily HH:MM times. LastFired is the
// minute-truncated instant of the last notification.
type Entry struct {
	Name      string
	Times     []string
	LastFired time.Time
}

// Due is a reminder that must be notified now.
type Due struct {
	UserID string
	Name   string
	Time   string
}

// Directory maps users to their reminders. One mutex guards all access and
// is never held while notifications are sent.
type Directory struct {
	mu      sync.Mutex
	entries map[string][]Entry
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{entries: make(map[string][]Entry)}
}

// Register upserts the reminder named name for user. Re-registering a name
// overwrites its times and clears LastFired.
func (d *Directory) Register(user, name string, times []string) {
	times = dedupe(times)
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.entries[user]
	for i := range list {
		if list[i].Name == name {
			list[i].Times = times
			list[i].LastFired = time.Time{}
			slog.Debug("reminder.Directory.Register: updated", "user", user, "name", name, "times", times)
			return
		}
	}
	d.entries[user] = append(list, Entry{Name: name, Times: times})
	slog.Debug("reminder.Directory.Register: added", "user", user, "name", name, "times", times)
}

// Remove deletes the reminder at the 1-based index. Removing the last entry
// forgets the user.
func (d *Directory) Remove(user string, index int) (Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.entries[user]
	if index < 1 || index > len(list) {
		return Entry{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	removed := list[index-1]
	list = slices.Delete(list, index-1, index)
	if len(list) == 0 {
		delete(d.entries, user)
	} else {
		d.entries[user] = list
	}
	return removed, nil
}

// List returns a copy of the user's reminders in registration order.
func (d *Directory) List(user string) []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.entries[user]
	out := make([]Entry, len(list))
	for i, e := range list {
		out[i] = Entry{Name: e.Name, Times: slices.Clone(e.Times), LastFired: e.LastFired}
	}
	return out
}

// Users returns the number of users with at least one reminder.
func (d *Directory) Users() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Due collects the reminders scheduled at now's HH:MM that have not fired in
// that minute yet, and marks them fired. A second call within the same minute
// returns nothing.
func (d *Directory) Due(now time.Time) []Due {
	hhmm := now.Format("15:04")
	minute := now.Truncate(time.Minute)

	d.mu.Lock()
	defer d.mu.Unlock()

	var due []Due
	for user, list := range d.entries {
		for i := range list {
			e := &list[i]
			if !slices.Contains(e.Times, hhmm) || e.LastFired.Equal(minute) {
				continue
			}
			e.LastFired = minute
			due = append(due, Due{UserID: user, Name: e.Name, Time: hhmm})
		}
	}
	return due
}

func dedupe(times []string) []string {
	out := make([]string, 0, len(times))
	for _, t := range times {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
