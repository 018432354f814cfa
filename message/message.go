package message

import (
	"github.com/isml-go/isml"
	"github.com/isml-go/isml/codec"
	"github.com/isml-go/isml/errors"
)

// SessionRef is the minimal capability Message needs from a session:
// just its identity. Session is defined in package session, which
// itself depends on package message; Message depends only on this small
// interface to avoid the import cycle that would otherwise result. The
// reference is one-way: a message holds a handle to its session, never
// the reverse, so releasing a message can never tear a session down.
type SessionRef interface {
	ID() isml.SessionId
}

// Message is one instance of a registered MessageType, with a field set
// populated according to that type's schema. A Message holds a reference
// to its session; destroying a Message never tears the session down.
type Message struct {
	id      isml.MessageId
	typ     isml.MessageType
	fields  *FieldSet
	session SessionRef
}

// New constructs a Message of the given type, bound to session, with an
// empty field set and the given id. Callers normally go through
// MessageFactory.CreateMessage rather than calling New directly.
func New(id isml.MessageId, typ isml.MessageType, session SessionRef) *Message {
	return &Message{id: id, typ: typ, fields: NewFieldSet(), session: session}
}

// ID returns the message's identifier.
func (m *Message) ID() isml.MessageId { return m.id }

// Type returns the message's MessageType.
func (m *Message) Type() isml.MessageType { return m.typ }

// Session returns the message's bound session, which may be nil for a
// message that was never associated with one.
func (m *Message) Session() SessionRef { return m.session }

// Fields returns the message's underlying field set.
func (m *Message) Fields() *FieldSet { return m.fields }

// HasField reports whether a field with the given name exists, regardless
// of its type.
func (m *Message) HasField(name string) bool {
	return m.fields.Contains(name)
}

// Field returns the value stored under name, typed as T. It fails with
// errors.ErrFieldDoesNotExist if no field with that name exists, or if it
// exists but was stored as a different type; there is no coercion.
func Field[T any](m *Message, name string) (T, error) {
	v, ok := Get[T](m.fields, name)
	if !ok {
		var zero T
		return zero, errors.New(errors.ErrFieldDoesNotExist, nil)
	}
	return v, nil
}

// SetField adds a field named name holding v to the message, failing with
// errors.ErrDuplicateField if the name is already taken. Use this for a
// message built directly with New rather than through a MessageFactory.
func SetField[T any](m *Message, name string, v T) error {
	return m.fields.Add(NewValueFieldWithValue(name, v))
}

// SetValue assigns v to the field already named name on the message's
// schema, the mutable counterpart to Field: it fails with
// errors.ErrFieldDoesNotExist under the same conditions Field does (no
// such field, or it was registered as a different type). Use this to
// populate a message a MessageFactory already built from its schema.
func SetValue[T any](m *Message, name string, v T) error {
	f, ok := m.fields.field(name)
	if !ok {
		return errors.New(errors.ErrFieldDoesNotExist, nil)
	}
	vf, ok := f.(*ValueField[T])
	if !ok {
		return errors.New(errors.ErrFieldDoesNotExist, nil)
	}
	vf.Set(v)
	return nil
}

// Clone returns a deep copy of the message's field set bound to a new
// identifier. It is used by the pub/sub channel to give every subscriber
// its own message instance during broadcast.
func (m *Message) Clone(newID isml.MessageId) *Message {
	return &Message{
		id:      newID,
		typ:     m.typ,
		fields:  m.fields.Clone(),
		session: m.session,
	}
}

// Encode writes the message body (MessageType followed by its fields in
// schema order) using c under ctx.
func (m *Message) Encode(c codec.Codec, ctx *codec.Context) error {
	if err := c.Encode(ctx, uint16(m.typ), ""); err != nil {
		return err
	}
	return m.fields.Encode(c, ctx)
}

// ByteSize returns the number of bytes Encode would write (the frame
// body size, not counting the length prefix itself).
func (m *Message) ByteSize(c codec.Codec) (int, error) {
	n, err := m.fields.ByteSize(c)
	if err != nil {
		return 0, err
	}
	return 2 + n, nil
}
