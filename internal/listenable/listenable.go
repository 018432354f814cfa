// Package listenable implements a small mutex-guarded fan-out list: add
// listeners, invoke an action on every one of them, with panics from
// individual listeners recovered and swallowed so one bad listener cannot
// break notification for the rest. It backs TransportListener fan-out
// (onErrorOccurred, onStateChanged).
package listenable

import "sync"

// List is a thread-safe collection of listeners of type L.
type List[L any] struct {
	mu        sync.Mutex
	listeners []L
}

// New returns an empty List.
func New[L any]() *List[L] {
	return &List[L]{}
}

// Add registers listener.
func (l *List[L]) Add(listener L) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, listener)
}

// Len reports how many listeners are registered.
func (l *List[L]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.listeners)
}

// Invoke calls action with every registered listener, in registration
// order. A panic inside action for one listener is recovered and
// swallowed; it does not prevent the remaining listeners from being
// notified.
func (l *List[L]) Invoke(action func(L)) {
	l.mu.Lock()
	snapshot := make([]L, len(l.listeners))
	copy(snapshot, l.listeners)
	l.mu.Unlock()

	for _, listener := range snapshot {
		invokeOne(listener, action)
	}
}

func invokeOne[L any](listener L, action func(L)) {
	defer func() {
		_ = recover()
	}()
	action(listener)
}
