package codec

import (
	"encoding/binary"
	"reflect"

	stderr "github.com/pkg/errors"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/errors"
)

// Empty is the zero-size value type used for Set[T], letting the binary
// codec tell a set-like associative container (count || key*) apart from
// a map-like one (count || (key || value)*) by inspecting the map's
// value type.
type Empty struct{}

// Set is a set-like associative container.
type Set[T comparable] map[T]Empty

// NewSet builds a Set containing items.
func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, it := range items {
		s[it] = Empty{}
	}
	return s
}

// Contains reports whether item is a member of s.
func (s Set[T]) Contains(item T) bool {
	_, ok := s[item]
	return ok
}

// Optional represents the presence or absence of a value of type T,
// encoded as bool-present || (if present) encode(value).
type Optional[T any] struct {
	Present bool
	Value   T
}

// Some wraps v as a present Optional.
func Some[T any](v T) Optional[T] { return Optional[T]{Present: true, Value: v} }

// None returns an absent Optional of T.
func None[T any]() Optional[T] { return Optional[T]{} }

// Pair is a fixed two-element tuple, encoded as encode(First) ||
// encode(Second).
type Pair[A, B any] struct {
	First  A
	Second B
}

// NewPair builds a Pair from a and b.
func NewPair[A, B any](a A, b B) Pair[A, B] { return Pair[A, B]{First: a, Second: b} }

// BinaryCodec is the one codec the core ships: a big-endian, length
// prefixed encoding for every value shape the message model supports.
// Composite values (structs implementing Serializable) delegate back to
// this codec via their own Serialize/Deserialize methods.
type BinaryCodec struct{}

// NewBinaryCodec constructs a BinaryCodec.
func NewBinaryCodec() *BinaryCodec { return &BinaryCodec{} }

func (c *BinaryCodec) Tag() Tag { return BinaryTag }

func (c *BinaryCodec) Encode(ctx *Context, v interface{}, _ string) error {
	return encodeValue(ctx, reflect.ValueOf(v))
}

func (c *BinaryCodec) Decode(ctx *Context, v interface{}, _ string) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New(errors.ErrInvalidOperation, nil)
	}
	return decodeValue(ctx, rv.Elem())
}

func (c *BinaryCodec) ByteSize(v interface{}) (int, error) {
	return byteSizeValue(reflect.ValueOf(v))
}

func asSerializable(rv reflect.Value) (Serializable, bool) {
	if rv.IsValid() && rv.CanInterface() {
		if s, ok := rv.Interface().(Serializable); ok {
			return s, true
		}
	}
	if rv.CanAddr() {
		if s, ok := rv.Addr().Interface().(Serializable); ok {
			return s, true
		}
	}
	return nil, false
}

func writeContainerSize(ctx *Context, n int) error {
	if n > isml.MaxContainerSize {
		return errors.New(errors.ErrContainerTooLarge, nil)
	}
	return stderr.Wrap(binary.Write(ctx.Writer(), binary.BigEndian, uint16(n)), "failed to encode container size")
}

func readContainerSize(ctx *Context) (int, error) {
	var n uint16
	if err := binary.Read(ctx.Reader(), binary.BigEndian, &n); err != nil {
		return 0, stderr.Wrap(err, "failed to decode container size")
	}
	return int(n), nil
}

func encodeValue(ctx *Context, rv reflect.Value) error {
	if s, ok := asSerializable(rv); ok {
		return s.Serialize(ctx)
	}

	switch rv.Kind() {
	case reflect.Bool:
		var b byte
		if rv.Bool() {
			b = 1
		}
		_, err := ctx.Writer().Write([]byte{b})
		return stderr.Wrap(err, "failed to encode bool")

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return stderr.Wrap(binary.Write(ctx.Writer(), binary.BigEndian, rv.Interface()), "failed to encode number")

	case reflect.String:
		s := rv.String()
		if err := writeContainerSize(ctx, len(s)); err != nil {
			return err
		}
		_, err := ctx.Writer().Write([]byte(s))
		return stderr.Wrap(err, "failed to encode string")

	case reflect.Slice:
		n := rv.Len()
		if err := writeContainerSize(ctx, n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := encodeValue(ctx, rv.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Array:
		n := rv.Len()
		if err := writeContainerSize(ctx, n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := encodeValue(ctx, rv.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		keys := rv.MapKeys()
		if err := writeContainerSize(ctx, len(keys)); err != nil {
			return err
		}
		isSet := rv.Type().Elem() == reflect.TypeOf(Empty{})
		for _, key := range keys {
			if err := encodeValue(ctx, key); err != nil {
				return err
			}
			if !isSet {
				if err := encodeValue(ctx, rv.MapIndex(key)); err != nil {
					return err
				}
			}
		}
		return nil

	case reflect.Struct:
		// Pair and Optional are generic structs without their own
		// Serializable methods (they are defined in this package, not by
		// an application), so they are unwrapped field by field here.
		if rv.NumField() == 2 && rv.Type().Field(0).Name == "First" && rv.Type().Field(1).Name == "Second" {
			if err := encodeValue(ctx, rv.Field(0)); err != nil {
				return err
			}
			return encodeValue(ctx, rv.Field(1))
		}
		if rv.NumField() == 2 && rv.Type().Field(0).Name == "Present" && rv.Type().Field(1).Name == "Value" {
			present := rv.Field(0).Bool()
			if err := encodeValue(ctx, rv.Field(0)); err != nil {
				return err
			}
			if present {
				return encodeValue(ctx, rv.Field(1))
			}
			return nil
		}
		return errors.New(errors.ErrInvalidCast, stderr.Errorf("unsupported value kind %s", rv.Kind()))

	default:
		return errors.New(errors.ErrInvalidCast, stderr.Errorf("unsupported value kind %s", rv.Kind()))
	}
}

func decodeValue(ctx *Context, rv reflect.Value) error {
	if s, ok := asSerializable(rv); ok {
		return s.Deserialize(ctx)
	}

	switch rv.Kind() {
	case reflect.Bool:
		var b [1]byte
		if _, err := ctx.Reader().Read(b[:]); err != nil {
			return stderr.Wrap(err, "failed to decode bool")
		}
		rv.SetBool(b[0] != 0)
		return nil

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return stderr.Wrap(binary.Read(ctx.Reader(), binary.BigEndian, rv.Addr().Interface()), "failed to decode number")

	case reflect.String:
		n, err := readContainerSize(ctx)
		if err != nil {
			return err
		}
		buf := make([]byte, n)
		if _, err := readFull(ctx, buf); err != nil {
			return stderr.Wrap(err, "failed to decode string")
		}
		rv.SetString(string(buf))
		return nil

	case reflect.Slice:
		n, err := readContainerSize(ctx)
		if err != nil {
			return err
		}
		out := reflect.MakeSlice(rv.Type(), n, n)
		for i := 0; i < n; i++ {
			if err := decodeValue(ctx, out.Index(i)); err != nil {
				return err
			}
		}
		rv.Set(out)
		return nil

	case reflect.Array:
		n, err := readContainerSize(ctx)
		if err != nil {
			return err
		}
		if n != rv.Len() {
			return errors.New(errors.ErrInvalidCast, stderr.Errorf("array of %d decoded as array of %d", n, rv.Len()))
		}
		for i := 0; i < n; i++ {
			if err := decodeValue(ctx, rv.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		n, err := readContainerSize(ctx)
		if err != nil {
			return err
		}
		out := reflect.MakeMapWithSize(rv.Type(), n)
		isSet := rv.Type().Elem() == reflect.TypeOf(Empty{})
		for i := 0; i < n; i++ {
			key := reflect.New(rv.Type().Key()).Elem()
			if err := decodeValue(ctx, key); err != nil {
				return err
			}
			val := reflect.New(rv.Type().Elem()).Elem()
			if !isSet {
				if err := decodeValue(ctx, val); err != nil {
					return err
				}
			}
			out.SetMapIndex(key, val)
		}
		rv.Set(out)
		return nil

	case reflect.Struct:
		if rv.NumField() == 2 && rv.Type().Field(0).Name == "First" && rv.Type().Field(1).Name == "Second" {
			if err := decodeValue(ctx, rv.Field(0)); err != nil {
				return err
			}
			return decodeValue(ctx, rv.Field(1))
		}
		if rv.NumField() == 2 && rv.Type().Field(0).Name == "Present" && rv.Type().Field(1).Name == "Value" {
			if err := decodeValue(ctx, rv.Field(0)); err != nil {
				return err
			}
			if rv.Field(0).Bool() {
				return decodeValue(ctx, rv.Field(1))
			}
			return nil
		}
		return errors.New(errors.ErrInvalidCast, stderr.Errorf("unsupported value kind %s", rv.Kind()))

	default:
		return errors.New(errors.ErrInvalidCast, stderr.Errorf("unsupported value kind %s", rv.Kind()))
	}
}

func readFull(ctx *Context, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := ctx.Reader().Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

func byteSizeValue(rv reflect.Value) (int, error) {
	if s, ok := asSerializable(rv); ok {
		return s.SerializedSize(), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return 1, nil

	case reflect.Int8, reflect.Uint8:
		return 1, nil
	case reflect.Int16, reflect.Uint16:
		return 2, nil
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4, nil
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8, nil

	case reflect.String:
		return 2 + rv.Len(), nil

	case reflect.Slice, reflect.Array:
		total := 2
		for i := 0; i < rv.Len(); i++ {
			n, err := byteSizeValue(rv.Index(i))
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil

	case reflect.Map:
		total := 2
		isSet := rv.Type().Elem() == reflect.TypeOf(Empty{})
		for _, key := range rv.MapKeys() {
			n, err := byteSizeValue(key)
			if err != nil {
				return 0, err
			}
			total += n
			if !isSet {
				n, err := byteSizeValue(rv.MapIndex(key))
				if err != nil {
					return 0, err
				}
				total += n
			}
		}
		return total, nil

	case reflect.Struct:
		if rv.NumField() == 2 && rv.Type().Field(0).Name == "First" && rv.Type().Field(1).Name == "Second" {
			a, err := byteSizeValue(rv.Field(0))
			if err != nil {
				return 0, err
			}
			b, err := byteSizeValue(rv.Field(1))
			if err != nil {
				return 0, err
			}
			return a + b, nil
		}
		if rv.NumField() == 2 && rv.Type().Field(0).Name == "Present" && rv.Type().Field(1).Name == "Value" {
			if !rv.Field(0).Bool() {
				return 1, nil
			}
			n, err := byteSizeValue(rv.Field(1))
			if err != nil {
				return 0, err
			}
			return 1 + n, nil
		}
		return 0, errors.New(errors.ErrInvalidCast, stderr.Errorf("unsupported value kind %s", rv.Kind()))

	default:
		return 0, errors.New(errors.ErrInvalidCast, stderr.Errorf("unsupported value kind %s", rv.Kind()))
	}
}
