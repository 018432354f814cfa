// Package message implements the typed, named-field message model: FieldValue
// and FieldSet (the schema-free runtime value container), Message (one
// instance bound to a session), and MessageDescriptor/MessageFactory (the
// schema registry that builds fresh messages by MessageType).
package message

import (
	"github.com/isml-go/isml/codec"
)

// FieldValue is a single named value inside a message's field set. Its value
// is encoded by whatever codec the caller selects at the call site (see
// package codec); the field itself only knows its name and how to get
// at its value generically.
type FieldValue interface {
	// Name returns the field's name. Immutable after construction.
	Name() string

	// Clone returns a deep copy of the field, independent of the
	// original.
	Clone() FieldValue

	// Value returns the field's current value as interface{}.
	Value() interface{}

	// Encode writes the field's value using c under ctx.
	Encode(c codec.Codec, ctx *codec.Context) error

	// Decode reads the field's value using c under ctx, replacing its
	// current value.
	Decode(c codec.Codec, ctx *codec.Context) error

	// ByteSize returns the number of bytes Encode would write under c,
	// without writing anything.
	ByteSize(c codec.Codec) (int, error)
}

// ValueField is a FieldValue holding a value of a concrete type T.
type ValueField[T any] struct {
	name  string
	value T
}

// NewValueField constructs a ValueField named name holding T's zero
// value.
func NewValueField[T any](name string) *ValueField[T] {
	return &ValueField[T]{name: name}
}

// NewValueFieldWithValue constructs a ValueField named name holding v.
func NewValueFieldWithValue[T any](name string, v T) *ValueField[T] {
	return &ValueField[T]{name: name, value: v}
}

func (f *ValueField[T]) Name() string { return f.name }

// Get returns the field's current value.
func (f *ValueField[T]) Get() T { return f.value }

// Set replaces the field's current value.
func (f *ValueField[T]) Set(v T) { f.value = v }

func (f *ValueField[T]) Clone() FieldValue {
	clone := *f
	return &clone
}

func (f *ValueField[T]) Value() interface{} { return f.value }

func (f *ValueField[T]) Encode(c codec.Codec, ctx *codec.Context) error {
	return c.Encode(ctx, f.value, f.name)
}

func (f *ValueField[T]) Decode(c codec.Codec, ctx *codec.Context) error {
	var v T
	if err := c.Decode(ctx, &v, f.name); err != nil {
		return err
	}
	f.value = v
	return nil
}

func (f *ValueField[T]) ByteSize(c codec.Codec) (int, error) {
	return c.ByteSize(f.value)
}
