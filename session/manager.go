package session

import (
	"context"
	"sync"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/errors"
	"github.com/isml-go/isml/log"
	"github.com/isml-go/isml/message"
	"github.com/isml-go/isml/metrics"
	"github.com/isml-go/isml/transport"
)

// Listener receives session lifecycle notifications from a Manager. A
// panic raised by a listener during fan-out is recovered and swallowed;
// one bad listener cannot break notification for the rest.
type Listener interface {
	OnSessionOpened(s *Session)
	OnSessionTerminating(s *Session)
	OnSessionTerminated(id isml.SessionId)
}

// Predicate is the function passed to Manager.Find.
type Predicate func(s *Session) bool

// Manager owns every Session keyed by its SessionId under a single
// mutex. Session ids are allocated from a process-wide monotonic
// counter (isml.NextSessionId), which already skips 0.
type Manager struct {
	factory *message.MessageFactory
	gauges  *metrics.Gauges
	logger  log.Logger

	mu        sync.Mutex
	sessions  map[isml.SessionId]*Session
	listeners []Listener
}

// NewManager returns an empty Manager. factory is used to build fresh
// messages for sessions it creates; gauges, if non-nil, is updated with
// the active session count; logger, if non-nil, receives session
// lifecycle events (nil means log.Discard()).
func NewManager(factory *message.MessageFactory, gauges *metrics.Gauges, logger log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		factory:  factory,
		gauges:   gauges,
		logger:   logger.ForClass("session", "Manager"),
		sessions: make(map[isml.SessionId]*Session),
	}
}

// AddListener registers l for OnSessionOpened/Terminating/Terminated
// notifications.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// CreateSession allocates a fresh SessionId, constructs a Session
// wrapping t, starts t, stores the session under its id, and fires
// OnSessionOpened. If t fails to start, the session is not stored and
// the start error is returned.
func (m *Manager) CreateSession(t transport.Transport) (*Session, error) {
	if err := t.Start(); err != nil {
		m.logger.Warn(context.Background(), "failed to start transport for new session",
			log.MapFields{"err": err.Error()})
		return nil, err
	}

	id := isml.NextSessionId()
	s := newSession(id, t, m.factory)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.gauges.IncSessionsActive()
	m.logger.Info(context.Background(), "session created", log.MapFields{"sessionId": id})
	m.notify(func(l Listener) { l.OnSessionOpened(s) })
	return s, nil
}

// Get returns the session registered under id, if any.
func (m *Manager) Get(id isml.SessionId) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Terminate removes the session registered under id and shuts it down.
// It fails with errors.ErrSessionNotFound if no such session is
// registered. OnSessionTerminating fires before shutdown is requested
// and OnSessionTerminated fires after, regardless of whether shutdown
// itself returned an error.
func (m *Manager) Terminate(id isml.SessionId) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return errors.New(errors.ErrSessionNotFound, nil)
	}

	m.gauges.DecSessionsActive()
	m.notify(func(l Listener) { l.OnSessionTerminating(s) })
	if err := s.Shutdown(); err != nil {
		m.logger.Warn(context.Background(), "session shutdown failed",
			log.MapFields{"sessionId": id, "err": err.Error()})
	}
	m.notify(func(l Listener) { l.OnSessionTerminated(id) })
	m.logger.Info(context.Background(), "session terminated", log.MapFields{"sessionId": id})
	return nil
}

// TerminateAll terminates every currently registered session. Per-session
// shutdown failures are tolerated: TerminateAll always processes every
// session it observed at call time.
func (m *Manager) TerminateAll() {
	m.mu.Lock()
	ids := make([]isml.SessionId, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.Terminate(id)
	}
}

// Find scans the session map and returns the first session satisfying
// pred, or (nil, false) if none does. Iteration order over a Go map is
// unspecified, so "first match" promises only that some match is
// returned when one exists.
func (m *Manager) Find(pred Predicate) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if pred(s) {
			return s, true
		}
	}
	return nil, false
}

// FindByProperty is Find specialized to a single property-bag key/value
// match.
func (m *Manager) FindByProperty(key string, val interface{}) (*Session, bool) {
	return m.Find(func(s *Session) bool {
		v, ok := s.Property(key)
		return ok && v == val
	})
}

// Len reports how many sessions are currently registered.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) notify(action func(Listener)) {
	m.mu.Lock()
	snapshot := make([]Listener, len(m.listeners))
	copy(snapshot, m.listeners)
	m.mu.Unlock()

	for _, l := range snapshot {
		invokeSwallowingPanic(l, action)
	}
}

func invokeSwallowingPanic(l Listener, action func(Listener)) {
	defer func() {
		_ = recover()
	}()
	action(l)
}
