// Package isml declares the identifier types shared by every subpackage:
// sessions, messages, message types, and the wire length prefix. They are
// plain fixed-width integers rather than opaque wrapper structs because the
// wire format uses them literally (see package transport).
package isml

import "sync/atomic"

// SessionId identifies a session for the lifetime of a messaging service.
// It is monotonically increasing and never reused; 0 is reserved to mean
// "no session".
type SessionId uint64

// InvalidSessionId is the reserved zero value of SessionId.
const InvalidSessionId SessionId = 0

// MessageId identifies a message for the lifetime of the process that
// created it. It is monotonically increasing per process; 0 is reserved to
// mean "no message".
type MessageId uint32

// InvalidMessageId is the reserved zero value of MessageId.
const InvalidMessageId MessageId = 0

// MessageType is the application-defined tag that selects a message's
// schema in a MessageFactory.
type MessageType uint16

// MessageLength is the wire type of a frame's length prefix. The framing
// protocol uses this type literally: the first two bytes of every frame
// are a MessageLength in network byte order.
type MessageLength uint16

// MaxMessageLength is the largest value a MessageLength can hold, and so
// the largest a single frame (length prefix included) may be.
const MaxMessageLength = ^MessageLength(0)

// MaxContainerSize is the largest element count the binary codec's u16
// count prefix can represent for a sequence, set, map, or fixed array.
const MaxContainerSize = 65535

// messageIDCounter backs NextMessageId. Message identifiers are
// monotonically increasing per process, never per session, so a single
// process-wide counter is the correct grain.
var messageIDCounter uint32

// NextMessageId returns a freshly allocated, process-wide unique
// MessageId. 0 (InvalidMessageId) is never returned.
func NextMessageId() MessageId {
	return MessageId(atomic.AddUint32(&messageIDCounter, 1))
}

// sessionIDCounter backs NextSessionId.
var sessionIDCounter uint64

// NextSessionId returns a freshly allocated, process-wide unique
// SessionId. 0 (InvalidSessionId) is never returned.
func NextSessionId() SessionId {
	return SessionId(atomic.AddUint64(&sessionIDCounter, 1))
}
