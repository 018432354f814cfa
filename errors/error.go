// Package errors defines the structured error taxonomy used throughout
// isml: every fallible operation in the core returns (or wraps) one of
// the ErrorCode values declared below instead of an ad-hoc error string.
package errors

import (
	"fmt"

	"github.com/isml-go/isml/log"
)

// Err is the interface implemented by every error value returned from
// the core. It carries a stable ErrorCode plus an optional underlying
// cause, and knows how to contribute itself to structured log output.
type Err interface {
	Error() string
	Cause() error
	ErrorCode() ErrorCode
	log.Loggable
}

// Category groups error codes by the kind of corrective action, if any,
// a caller can take.
type Category string

const (
	// InternalError indicates a bug or an unexpected failure reaching a
	// collaborator (e.g. the underlying stream). Only recourse is to
	// inspect logs/retry.
	InternalError Category = "InternalError"

	// InputError indicates the caller supplied something the core
	// cannot act on: an unknown message type, a malformed URL, a
	// duplicate field name.
	InputError Category = "InputError"

	// StateConflict indicates an attempt to perform an operation that
	// conflicts with the current state of an object (e.g. registering a
	// message type twice).
	StateConflict Category = "StateConflict"

	// NotFound indicates an operation was attempted against an instance
	// that does not exist (a field, a session, a protocol factory).
	NotFound Category = "NotFound"

	// Unavailable indicates a resource the operation depends on
	// (a transport, a pending request) is no longer usable.
	Unavailable Category = "Unavailable"
)

var (
	ErrUnknownMessageType = ErrorCode{
		category: InputError,
		code:     1001,
		desc:     "Message type is not registered with the message factory.",
	}

	ErrFieldDoesNotExist = ErrorCode{
		category: NotFound,
		code:     1002,
		desc:     "Field does not exist on the message, or its stored type does not match.",
	}

	ErrDuplicateField = ErrorCode{
		category: StateConflict,
		code:     1003,
		desc:     "A field with this name is already registered on the schema.",
	}

	ErrDuplicateMessageType = ErrorCode{
		category: StateConflict,
		code:     1004,
		desc:     "A schema for this message type is already registered.",
	}

	ErrMalformedUrl = ErrorCode{
		category: InputError,
		code:     2001,
		desc:     "Failed to parse the connection URL.",
	}

	ErrProtocolNotSupported = ErrorCode{
		category: NotFound,
		code:     2002,
		desc:     "No transport factory is registered for this protocol.",
	}

	ErrTransportError = ErrorCode{
		category: InternalError,
		code:     3001,
		desc:     "The underlying transport failed.",
	}

	ErrTransportNotStarted = ErrorCode{
		category: Unavailable,
		code:     3002,
		desc:     "The transport is not started.",
	}

	ErrFrameTooLarge = ErrorCode{
		category: InputError,
		code:     3003,
		desc:     "The encoded message does not fit within a single 65535-byte frame.",
	}

	ErrContainerTooLarge = ErrorCode{
		category: InputError,
		code:     3004,
		desc:     "A sequence, set, map, or array exceeds the 65535-element wire limit.",
	}

	ErrRequestExpired = ErrorCode{
		category: Unavailable,
		code:     4001,
		desc:     "No reply carrying srcMsgId arrived before the pending request expired.",
	}

	ErrInvalidCast = ErrorCode{
		category: InputError,
		code:     5001,
		desc:     "The codec context was asked to operate as a stream type it was not created with.",
	}

	ErrInvalidOperation = ErrorCode{
		category: InternalError,
		code:     5002,
		desc:     "The requested operation is not valid in the current state.",
	}

	ErrSessionNotFound = ErrorCode{
		category: NotFound,
		code:     6001,
		desc:     "No session is registered under this identifier.",
	}

	ErrAlreadySubscribed = ErrorCode{
		category: StateConflict,
		code:     7001,
		desc:     "The session is already subscribed to this channel.",
	}

	ErrNotSubscribed = ErrorCode{
		category: NotFound,
		code:     7002,
		desc:     "The session is not subscribed to this channel.",
	}
)

// Error is the concrete implementation of Err.
type Error struct {
	cause     error
	errorCode ErrorCode
}

// New creates a new Error wrapping an optional cause.
func New(errorCode ErrorCode, cause error) Error {
	return Error{cause: cause, errorCode: errorCode}
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("[%d] %s: %s", e.errorCode.Code(), e.errorCode.Category(), e.errorCode.Desc())
	}
	return fmt.Sprintf("[%d] %s: %s (cause: %s)", e.errorCode.Code(), e.errorCode.Category(), e.errorCode.Desc(), e.cause)
}

// Log implements log.Loggable.
func (e Error) Log(fields log.Fields) {
	fields.Add("errorCode", e.errorCode.Code())
	fields.Add("errorCategory", string(e.errorCode.Category()))
	if e.cause != nil {
		fields.Add("cause", e.cause.Error())
	}
}

// Cause returns the underlying error, if any.
func (e Error) Cause() error {
	return e.cause
}

// ErrorCode returns the structured code identifying this error.
func (e Error) ErrorCode() ErrorCode {
	return e.errorCode
}

// ErrorCode uniquely identifies a class of error the core can produce.
type ErrorCode struct {
	category Category
	code     int
	desc     string
}

func (e ErrorCode) Category() Category { return e.category }
func (e ErrorCode) Code() int          { return e.code }
func (e ErrorCode) Desc() string       { return e.desc }
