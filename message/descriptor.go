package message

import (
	"github.com/isml-go/isml"
	"github.com/isml-go/isml/errors"
)

// FieldDescriptor is a name paired with a factory closure that produces
// a fresh, empty FieldValue of the descriptor's value type. The closure
// captures the type parameter, so the descriptor itself stays
// non-generic and schemas of mixed field types fit in one slice.
type FieldDescriptor struct {
	name     string
	newField func() FieldValue
}

// NewFieldDescriptor builds a FieldDescriptor for a field of type T named
// name.
func NewFieldDescriptor[T any](name string) FieldDescriptor {
	return FieldDescriptor{
		name:     name,
		newField: func() FieldValue { return NewValueField[T](name) },
	}
}

// Name returns the descriptor's field name.
func (d FieldDescriptor) Name() string { return d.name }

// Build constructs a fresh FieldValue from this descriptor.
func (d FieldDescriptor) Build() FieldValue { return d.newField() }

// MessageDescriptor is the ordered, named schema for one MessageType: the
// list of field descriptors a MessageFactory invokes, in registration
// order, to populate a freshly created message's field set.
type MessageDescriptor struct {
	typ         isml.MessageType
	descriptors []FieldDescriptor
	byName      map[string]struct{}
}

// NewMessageDescriptor begins a schema for typ with no fields.
func NewMessageDescriptor(typ isml.MessageType) *MessageDescriptor {
	return &MessageDescriptor{typ: typ, byName: make(map[string]struct{})}
}

// Type returns the MessageType this descriptor describes.
func (d *MessageDescriptor) Type() isml.MessageType { return d.typ }

// RegisterField appends a field of type T named name to the schema. It
// fails with errors.ErrDuplicateField if name is already registered on
// this descriptor.
func RegisterField[T any](d *MessageDescriptor, name string) (*MessageDescriptor, error) {
	if _, exists := d.byName[name]; exists {
		return d, errors.New(errors.ErrDuplicateField, nil)
	}
	d.descriptors = append(d.descriptors, NewFieldDescriptor[T](name))
	d.byName[name] = struct{}{}
	return d, nil
}

// FieldDescriptors returns the descriptor's fields in registration order.
func (d *MessageDescriptor) FieldDescriptors() []FieldDescriptor {
	return d.descriptors
}
