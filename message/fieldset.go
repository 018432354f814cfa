package message

import (
	"github.com/isml-go/isml/codec"
	"github.com/isml-go/isml/errors"
)

// FieldSet is an ordered sequence of fields plus a name-indexed lookup.
// Insertion order is wire order; the lookup stays consistent with the
// sequence through every mutation. FieldValue names within one FieldSet are
// unique: Add rejects a duplicate name rather than overwriting.
type FieldSet struct {
	fields []FieldValue
	byName map[string]FieldValue
}

// NewFieldSet returns an empty FieldSet.
func NewFieldSet() *FieldSet {
	return &FieldSet{byName: make(map[string]FieldValue)}
}

// Add appends f to the set. It fails with errors.ErrDuplicateField if a
// field with the same name is already present.
func (fs *FieldSet) Add(f FieldValue) error {
	if _, exists := fs.byName[f.Name()]; exists {
		return errors.New(errors.ErrDuplicateField, nil)
	}
	fs.fields = append(fs.fields, f)
	fs.byName[f.Name()] = f
	return nil
}

// Len returns the number of fields in the set.
func (fs *FieldSet) Len() int { return len(fs.fields) }

// Fields returns the fields in insertion (wire) order. The returned slice
// must not be mutated by the caller.
func (fs *FieldSet) Fields() []FieldValue { return fs.fields }

// Contains reports whether a field with the given name exists,
// regardless of its value type.
func (fs *FieldSet) Contains(name string) bool {
	_, ok := fs.byName[name]
	return ok
}

// field looks a field up by name without any type check.
func (fs *FieldSet) field(name string) (FieldValue, bool) {
	f, ok := fs.byName[name]
	return f, ok
}

// Get returns the value stored under name if it exists and was stored as
// a ValueField[T]; otherwise ok is false. There is no coercion: a field
// stored as int32 is not returned by Get[int64].
func Get[T any](fs *FieldSet, name string) (T, bool) {
	var zero T
	f, ok := fs.field(name)
	if !ok {
		return zero, false
	}
	vf, ok := f.(*ValueField[T])
	if !ok {
		return zero, false
	}
	return vf.Get(), true
}

// Contains reports whether name exists in fs and was stored as a
// ValueField[T].
func Contains[T any](fs *FieldSet, name string) bool {
	f, ok := fs.field(name)
	if !ok {
		return false
	}
	_, ok = f.(*ValueField[T])
	return ok
}

// Clone returns a deep copy of fs: every field is cloned independently.
func (fs *FieldSet) Clone() *FieldSet {
	clone := NewFieldSet()
	for _, f := range fs.fields {
		// Add cannot fail here: names were already unique in fs.
		_ = clone.Add(f.Clone())
	}
	return clone
}

// Encode writes every field, in insertion order, using c under ctx.
func (fs *FieldSet) Encode(c codec.Codec, ctx *codec.Context) error {
	for _, f := range fs.fields {
		if err := f.Encode(c, ctx); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads every field, in insertion order, using c under ctx,
// replacing each field's current value.
func (fs *FieldSet) Decode(c codec.Codec, ctx *codec.Context) error {
	for _, f := range fs.fields {
		if err := f.Decode(c, ctx); err != nil {
			return err
		}
	}
	return nil
}

// ByteSize returns the number of bytes Encode would write under c.
func (fs *FieldSet) ByteSize(c codec.Codec) (int, error) {
	total := 0
	for _, f := range fs.fields {
		n, err := f.ByteSize(c)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
