package message

import (
	"sync"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/codec"
	"github.com/isml-go/isml/errors"
)

// MessageFactory holds MessageType -> MessageDescriptor. Registration is a
// single-writer operation expected to happen during configuration; once a
// type is registered its schema is immutable and lookups are read-only
// thereafter. There is no package-level singleton: callers construct and
// thread a MessageFactory through explicitly.
type MessageFactory struct {
	mu          sync.RWMutex
	descriptors map[isml.MessageType]*MessageDescriptor
}

// NewMessageFactory returns an empty MessageFactory.
func NewMessageFactory() *MessageFactory {
	return &MessageFactory{descriptors: make(map[isml.MessageType]*MessageDescriptor)}
}

// AddDescriptor registers descriptor. It fails with
// errors.ErrDuplicateMessageType if descriptor's type is already
// registered; registration never silently overwrites a schema.
func (f *MessageFactory) AddDescriptor(descriptor *MessageDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.descriptors[descriptor.Type()]; exists {
		return errors.New(errors.ErrDuplicateMessageType, nil)
	}
	f.descriptors[descriptor.Type()] = descriptor
	return nil
}

// HasDescriptor reports whether typ has a registered schema.
func (f *MessageFactory) HasDescriptor(typ isml.MessageType) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, ok := f.descriptors[typ]
	return ok
}

// CreateMessage looks the schema for typ up; if absent it fails with
// errors.ErrUnknownMessageType. Otherwise it allocates a fresh Message
// carrying id, bound to session, and populates its field set by invoking
// each field descriptor's factory closure in registration order.
func (f *MessageFactory) CreateMessage(typ isml.MessageType, id isml.MessageId, session SessionRef) (*Message, error) {
	f.mu.RLock()
	descriptor, ok := f.descriptors[typ]
	f.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.ErrUnknownMessageType, nil)
	}

	msg := New(id, typ, session)
	for _, fd := range descriptor.FieldDescriptors() {
		// AddDescriptor/RegisterField already rejected duplicate names at
		// registration time, so Add cannot fail here.
		_ = msg.fields.Add(fd.Build())
	}

	return msg, nil
}

// DecodeMessage reads a MessageType off ctx, then, if a schema is
// registered for it, builds a Message bound to session and decodes its
// fields in schema order. The returned bool is false (with a nil error)
// when the type has no registered schema, signaling the caller to drop
// the frame rather than fail the whole transport over one unrecognized
// message. The decoded message gets a locally allocated id: the wire
// format carries no message identifier of its own, only whatever the
// schema's own fields (e.g. a srcMsgId correlation field) convey.
func (f *MessageFactory) DecodeMessage(c codec.Codec, ctx *codec.Context, session SessionRef) (*Message, bool, error) {
	var typ uint16
	if err := c.Decode(ctx, &typ, ""); err != nil {
		return nil, false, err
	}

	messageType := isml.MessageType(typ)
	f.mu.RLock()
	descriptor, ok := f.descriptors[messageType]
	f.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	msg := New(isml.NextMessageId(), messageType, session)
	for _, fd := range descriptor.FieldDescriptors() {
		_ = msg.fields.Add(fd.Build())
	}
	if err := msg.fields.Decode(c, ctx); err != nil {
		return nil, false, err
	}

	return msg, true, nil
}
