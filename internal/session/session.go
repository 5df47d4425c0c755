// Package session keeps the active conversation flow of each user.
//
// A user has at most one active session. Setting a session replaces any
// other, so starting a new flow discards the previous flow's answers.
// Sessions live in process memory and are lost on restart.
package session

import (
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
)

// Kind identifies the flow a session belongs to.
type Kind string

const (
	KindTriage      Kind = "triage"
	KindAppointment Kind = "appointment"
	KindRoute       Kind = "route"
	KindStock       Kind = "stock"
	KindMedication  Kind = "medication"
)

// Session is the state of one in-progress flow. Each flow defines its own
// concrete type holding the current step and the answers collected so far.
type Session interface {
	Kind() Kind
}

// Opts holds configuration options for a Registry.
type Opts struct {
	TTL time.Duration // zero keeps sessions until cleared
}

// Option configures a Registry.
type Option func(*Opts)

// WithTTL expires sessions that were not updated within ttl.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) {
		o.TTL = ttl
	}
}

// Registry maps user ids to their active session. It is safe for
// concurrent use.
type Registry struct {
	sessions *cache.Cache
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	expiration, cleanup := cache.NoExpiration, time.Duration(0)
	if cfg.TTL > 0 {
		expiration, cleanup = cfg.TTL, cfg.TTL
	}
	slog.Debug("session.NewRegistry: created", "ttl", cfg.TTL)
	return &Registry{sessions: cache.New(expiration, cleanup)}
}

// Get returns the active session of user.
func (r *Registry) Get(user string) (Session, bool) {
	v, ok := r.sessions.Get(user)
	if !ok {
		return nil, false
	}
	s, ok := v.(Session)
	return s, ok
}

// Set makes s the active session of user, replacing any other.
func (r *Registry) Set(user string, s Session) {
	if prev, ok := r.Get(user); ok && prev.Kind() != s.Kind() {
		slog.Debug("session.Registry.Set: replacing active flow", "user", user, "from", prev.Kind(), "to", s.Kind())
	}
	r.sessions.Set(user, s, cache.DefaultExpiration)
}

// Clear removes the active session of user, if any.
func (r *Registry) Clear(user string) {
	r.sessions.Delete(user)
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

// Lookup returns the active session of user when it has type T.
func Lookup[T Session](r *Registry, user string) (T, bool) {
	var zero T
	s, ok := r.Get(user)
	if !ok {
		return zero, false
	}
	t, ok := s.(T)
	return t, ok
}
