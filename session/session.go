// Package session implements the logical conversation layered over one
// transport: Session wraps a single transport and a property bag;
// Manager owns every Session keyed by its SessionId under one mutex,
// firing lifecycle notifications and supporting predicate lookup.
package session

import (
	"sync"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/errors"
	"github.com/isml-go/isml/message"
	"github.com/isml-go/isml/transport"
)

// Session wraps exactly one transport, assigns it an owning SessionId, and
// carries an application-defined property bag (e.g. a pub/sub
// subscription key). A Session is active iff its transport is in
// StartPending or Started.
type Session struct {
	id        isml.SessionId
	transport transport.Transport
	factory   *message.MessageFactory

	propsMu sync.RWMutex
	props   map[string]interface{}
}

// newSession constructs a Session bound to t, carrying id. The caller
// (Manager.CreateSession) is responsible for starting t.
func newSession(id isml.SessionId, t transport.Transport, factory *message.MessageFactory) *Session {
	return &Session{id: id, transport: t, factory: factory, props: make(map[string]interface{})}
}

// ID implements message.SessionRef.
func (s *Session) ID() isml.SessionId { return s.id }

// Transport returns the session's underlying transport.
func (s *Session) Transport() transport.Transport { return s.transport }

// Active reports whether the session's transport is StartPending or
// Started.
func (s *Session) Active() bool {
	switch s.transport.State() {
	case transport.StartPending, transport.Started:
		return true
	default:
		return false
	}
}

// SetProperty stores v under key in the session's property bag.
func (s *Session) SetProperty(key string, v interface{}) {
	s.propsMu.Lock()
	defer s.propsMu.Unlock()
	s.props[key] = v
}

// Property returns the value stored under key, if any.
func (s *Session) Property(key string) (interface{}, bool) {
	s.propsMu.RLock()
	defer s.propsMu.RUnlock()
	v, ok := s.props[key]
	return v, ok
}

// NewMessage builds a fresh message of typ from the session's message
// factory, bound to this session, with a freshly allocated MessageId.
func (s *Session) NewMessage(typ isml.MessageType) (*message.Message, error) {
	if s.factory == nil {
		return nil, errors.New(errors.ErrInvalidOperation, nil)
	}
	return s.factory.CreateMessage(typ, isml.NextMessageId(), s)
}

// Send enqueues msg for writing on the session's transport. It fails
// with errors.ErrTransportNotStarted unless the transport is Started.
func (s *Session) Send(msg *message.Message) error {
	return s.transport.Send(msg)
}

// Request enqueues msg and returns a future completed by a correlated
// reply or, after 30 seconds, by expiry.
func (s *Session) Request(msg *message.Message) (*transport.PendingRequest, error) {
	return s.transport.Request(msg)
}

// Receive returns the next queued incoming message, or (nil, false) if
// none is currently available. It never blocks.
func (s *Session) Receive() (*message.Message, bool) {
	return s.transport.Receive()
}

// Shutdown transitions the session's transport to stopping. It does not
// block on drain; Stop itself blocks until the transport's own loops
// exit.
func (s *Session) Shutdown() error {
	return s.transport.Stop()
}
