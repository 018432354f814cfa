// Package transport implements the framed, length-prefixed wire
// protocol over a bidirectional byte stream: a state machine with a
// read loop, a write loop, and a pending-request table swept for expiry
// on a ticker.
package transport

import (
	"fmt"

	"github.com/isml-go/isml/message"
)

// State is a transport's position in its Stopped -> StartPending ->
// Started -> StopPending -> Stopped lifecycle. Transitions are driven by
// explicit Start/Stop calls and by I/O errors (which jump straight to
// StopPending).
type State int32

const (
	Stopped State = iota
	StartPending
	Started
	StopPending
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case StartPending:
		return "StartPending"
	case Started:
		return "Started"
	case StopPending:
		return "StopPending"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// TransportListener receives notifications about a transport's lifecycle.
// A panic from one listener during fan-out is recovered and does not
// prevent the remaining listeners from being notified (see
// isml/internal/listenable).
type TransportListener interface {
	OnStateChanged(previous, current State)
	OnErrorOccurred(err error)
}

// Transport is a bidirectional, message-framed connection to a peer. It
// is non-blocking on the caller's goroutine: Send and Request enqueue
// work for the transport's own read/write loops, and Receive polls
// without blocking.
type Transport interface {
	// Start transitions the transport from Stopped to Started, launching
	// its read, write, and expiry-sweep loops. It fails if the transport
	// is not Stopped.
	Start() error

	// Stop transitions the transport to StopPending, halts its loops,
	// fails every pending request, and blocks until shutdown completes.
	// It fails if the transport is already stopped or stopping.
	Stop() error

	// State reports the transport's current lifecycle state.
	State() State

	// Send enqueues msg for writing. It fails with
	// errors.ErrTransportNotStarted unless State() == Started.
	Send(msg *message.Message) error

	// Request enqueues msg for writing and returns a PendingRequest whose
	// promise is completed when a reply echoing msg's id in a srcMsgId
	// field arrives, or with errors.ErrRequestExpired after 30 seconds
	// (the default, overridable via FramedTransportProps), whichever
	// comes first.
	Request(msg *message.Message) (*PendingRequest, error)

	// Receive returns the next queued incoming message, or (nil, false)
	// if none is currently available. It never blocks.
	Receive() (*message.Message, bool)

	// AddListener registers l for state-change and error notifications.
	AddListener(l TransportListener)
}
