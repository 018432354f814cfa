package dispatch

import (
	"github.com/isml-go/isml/session"
)

// Controller ties one Dispatcher to the session population a
// session.Manager owns. Applications build one per functional area,
// register handlers on Dispatcher(), and feed it inbound traffic with
// DrainSession from wherever they poll their sessions.
type Controller struct {
	dispatcher *Dispatcher
	sessions   *session.Manager
}

// NewController returns a Controller over sessions with a fresh, empty
// Dispatcher.
func NewController(sessions *session.Manager) *Controller {
	return &Controller{
		dispatcher: NewDispatcher(),
		sessions:   sessions,
	}
}

// Dispatcher returns the controller's dispatcher, for handler and
// filter registration.
func (c *Controller) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// Sessions returns the session manager the controller was built over.
func (c *Controller) Sessions() *session.Manager {
	return c.sessions
}

// DrainSession dispatches every message currently queued on s and
// reports how many it dispatched. It never blocks: once the incoming
// queue is empty it returns, leaving the caller to decide when to poll
// again.
func (c *Controller) DrainSession(s *session.Session) int {
	drained := 0
	for {
		msg, ok := s.Receive()
		if !ok {
			return drained
		}
		c.dispatcher.Dispatch(msg)
		drained++
	}
}
