// Package dispatch routes inbound messages to handlers by MessageType,
// so an application registers one handler per type instead of
// hand-rolling a switch over Session.Receive. A Dispatcher carries a
// filter chain applied ahead of every handler and can delegate types it
// does not handle to other dispatchers; Controller ties a Dispatcher to
// the session population a session.Manager owns.
package dispatch

import (
	"sync"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/filter"
	"github.com/isml-go/isml/message"
)

// Handler consumes one dispatched message.
type Handler func(msg *message.Message)

// Dispatcher distributes messages to handlers keyed by MessageType. A
// message whose type has no handler here is offered to the delegated
// dispatchers, in registration order, and dropped if none of them
// handles it either. A message whose type has a handler but fails the
// filter chain goes to the rejection handler instead. Handler panics
// are recovered and swallowed; one bad handler cannot take down the
// loop feeding the dispatcher.
type Dispatcher struct {
	mu         sync.RWMutex
	handlers   map[isml.MessageType]Handler
	delegates  []*Dispatcher
	filters    *filter.Chain
	onRejected Handler
}

// NewDispatcher returns a Dispatcher with no handlers, an empty filter
// chain (which matches everything), and a no-op rejection handler.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers:   make(map[isml.MessageType]Handler),
		filters:    filter.NewChain(),
		onRejected: func(*message.Message) {},
	}
}

// AddHandler registers handler for typ, replacing any handler
// previously registered for it.
func (d *Dispatcher) AddHandler(typ isml.MessageType, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[typ] = handler
}

// HasHandler reports whether a handler is registered for typ on this
// dispatcher itself (delegates are not consulted).
func (d *Dispatcher) HasHandler(typ isml.MessageType) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[typ]
	return ok
}

// AddDelegate registers another dispatcher to receive messages whose
// type this dispatcher has no handler for.
func (d *Dispatcher) AddDelegate(delegate *Dispatcher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delegates = append(d.delegates, delegate)
}

// Filter returns the dispatcher's filter chain. Messages must match the
// chain before their handler runs; an empty chain matches everything.
func (d *Dispatcher) Filter() *filter.Chain {
	return d.filters
}

// OnMessageRejected sets the handler invoked for messages that have a
// registered handler but fail the filter chain.
func (d *Dispatcher) OnMessageRejected(handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if handler == nil {
		handler = func(*message.Message) {}
	}
	d.onRejected = handler
}

// Dispatch routes msg: to its type's handler if the filter chain
// matches, to the rejection handler if it does not, to the first
// delegate handling the type if this dispatcher does not, and nowhere
// at all otherwise.
func (d *Dispatcher) Dispatch(msg *message.Message) {
	d.mu.RLock()
	handler, ok := d.handlers[msg.Type()]
	rejected := d.onRejected
	delegates := d.delegates
	d.mu.RUnlock()

	if !ok {
		for _, delegate := range delegates {
			if delegate.HasHandler(msg.Type()) {
				delegate.Dispatch(msg)
				return
			}
		}
		return
	}

	if d.filters.Matches(msg) {
		invoke(handler, msg)
		return
	}
	invoke(rejected, msg)
}

func invoke(handler Handler, msg *message.Message) {
	defer func() {
		_ = recover()
	}()
	handler(msg)
}
