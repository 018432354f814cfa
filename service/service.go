// Package service implements the messaging facade: it owns a
// transport-factory registry keyed by protocol string, a session
// manager, and a Start/Stop lifecycle. Connect resolves the URL's
// protocol, asks the matching factory to produce a not-yet-started
// transport, and hands it to the session manager, which starts it and
// wraps it in a Session.
package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/isml-go/isml/errors"
	"github.com/isml-go/isml/isurl"
	"github.com/isml-go/isml/log"
	"github.com/isml-go/isml/message"
	"github.com/isml-go/isml/session"
	"github.com/isml-go/isml/transport"
)

// State is the messaging service's own lifecycle position, distinct from
// any individual transport's state.
type State int32

const (
	Stopped State = iota
	Started
	StopPending
)

// TransportFactory produces a not-yet-started Transport for a parsed
// URL. Implementations typically dial out (e.g. net.Dial for the TCP
// reference factory in transport/tcp.go) but must not start the
// transport themselves; MessagingService.Connect starts it via the
// session manager so session lifecycle notifications fire consistently
// regardless of transport kind.
type TransportFactory interface {
	New(ctx context.Context, u isurl.URL) (transport.Transport, error)
}

// TransportFactoryFunc adapts a function to a TransportFactory.
type TransportFactoryFunc func(ctx context.Context, u isurl.URL) (transport.Transport, error)

// New implements TransportFactory.
func (f TransportFactoryFunc) New(ctx context.Context, u isurl.URL) (transport.Transport, error) {
	return f(ctx, u)
}

// Props configures a MessagingService. Factory and Sessions are
// required; Logger is optional.
type Props struct {
	Factory  *message.MessageFactory
	Sessions *session.Manager
	Logger   log.Logger
}

// MessagingService is the library's outward facade: the one object an
// application constructs to register transport factories, connect to
// peers, and run a lifecycle around the sessions it creates. There is
// no package-level singleton: callers construct one explicitly and
// thread it through.
type MessagingService struct {
	factory  *message.MessageFactory
	sessions *session.Manager
	logger   log.Logger

	mu        sync.RWMutex
	factories map[string]TransportFactory

	state  int32
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a MessagingService with an empty transport-factory
// registry and no active sessions.
func New(props Props) *MessagingService {
	return &MessagingService{
		factory:   props.Factory,
		sessions:  props.Sessions,
		logger:    props.Logger,
		factories: make(map[string]TransportFactory),
	}
}

// RegisterTransportFactory registers f under protocol. protocol is
// matched case-sensitively against a URL's scheme. Re-registering the
// same protocol overwrites the previous factory.
func (s *MessagingService) RegisterTransportFactory(protocol string, f TransportFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[protocol] = f
}

// Connect parses raw, resolves its scheme against the registered
// transport factories, asks that factory to produce a transport, and
// hands the transport to the session manager, which starts it and wraps
// it in a *session.Session. It fails with errors.ErrMalformedUrl if raw
// does not parse, or errors.ErrProtocolNotSupported if no factory is
// registered under the URL's scheme.
func (s *MessagingService) Connect(ctx context.Context, raw string) (*session.Session, error) {
	u, err := isurl.Parse(raw)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	factory, ok := s.factories[u.Scheme()]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrProtocolNotSupported, nil)
	}

	t, err := factory.New(ctx, u)
	if err != nil {
		wrapped := errors.New(errors.ErrTransportError, err)
		if s.logger != nil {
			s.logger.Warn(ctx, "failed to connect", log.MapFields{"url": raw}, wrapped)
		}
		return nil, wrapped
	}

	return s.sessions.CreateSession(t)
}

// Start transitions the service to Started and launches its lifecycle
// goroutine, which simply waits for Stop: individual transports already
// own their own read/write/sweep goroutines, so the service-level
// goroutine's only job is to hold the Start/Stop span open. It fails if
// the service is not Stopped.
func (s *MessagingService) Start() error {
	if !atomic.CompareAndSwapInt32(&s.state, int32(Stopped), int32(Started)) {
		return errors.New(errors.ErrInvalidOperation, nil)
	}

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.stopCh
	}()
	return nil
}

// Stop transitions the service to StopPending, terminates every session
// the manager owns, and joins the lifecycle goroutine. It fails if the
// service is not Started.
func (s *MessagingService) Stop() error {
	if !atomic.CompareAndSwapInt32(&s.state, int32(Started), int32(StopPending)) {
		return errors.New(errors.ErrInvalidOperation, nil)
	}

	s.sessions.TerminateAll()
	close(s.stopCh)
	s.wg.Wait()
	atomic.StoreInt32(&s.state, int32(Stopped))
	return nil
}

// State reports the service's own lifecycle position.
func (s *MessagingService) State() State {
	return State(atomic.LoadInt32(&s.state))
}

// Sessions returns the session manager the service was constructed
// with, for callers that need direct access (e.g. Find/FindByProperty).
func (s *MessagingService) Sessions() *session.Manager {
	return s.sessions
}

// Factory returns the message factory the service was constructed with,
// so applications hold a single object but can still register schemas
// and build messages directly.
func (s *MessagingService) Factory() *message.MessageFactory {
	return s.factory
}
