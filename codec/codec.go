package codec

import (
	"sync"

	"github.com/isml-go/isml/errors"
)

// Serializable is the capability a composite (non-primitive) value
// implements to take over its own encoding: an application type that
// implements it can be stored in a message field, and BinaryCodec
// delegates to these methods wherever it encounters one.
type Serializable interface {
	Serialize(ctx *Context) error
	Deserialize(ctx *Context) error
	SerializedSize() int
}

// Codec maps a value and a field name to bytes and back. name is used
// only by name-addressed codecs (e.g. a JSON codec would use it as the
// object key); the binary codec ignores it. One Context is created per
// encode/decode operation and passed to every call within it (a message
// shares one Context across all of its fields); a composite multiplexer
// picks the codec from the tag that Context carries.
type Codec interface {
	Tag() Tag
	Encode(ctx *Context, v interface{}, name string) error
	Decode(ctx *Context, v interface{}, name string) error
	ByteSize(v interface{}) (int, error)
}

// Registry looks codecs up by tag. It backs Multiplex: a value whose
// fields are each encoded with a possibly different registered codec,
// selected by the tag on the Context in scope at that point.
type Registry struct {
	mu     sync.RWMutex
	codecs map[Tag]Codec
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[Tag]Codec)}
}

// Register adds c to the registry under its own Tag, overwriting any
// codec previously registered under the same tag.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[c.Tag()] = c
}

// Lookup returns the codec registered under tag, or errors.ErrInvalidCast
// if no codec was registered under it.
func (r *Registry) Lookup(tag Tag) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.codecs[tag]
	if !ok {
		return nil, errors.New(errors.ErrInvalidCast, nil)
	}
	return c, nil
}

// NewDefaultRegistry returns a Registry with only BinaryCodec registered,
// the configuration every transport uses unless a caller wires up
// additional codecs of their own.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewBinaryCodec())
	return r
}

// Multiplex is the composite codec: it dispatches every call to
// whichever registered codec matches the tag carried on the Context in
// scope, so a caller can mix wire formats across call sites while
// handing collaborators a single Codec value. An unmatched tag fails
// with errors.ErrInvalidCast.
type Multiplex struct {
	registry *Registry
	tag      Tag
}

// NewMultiplex builds a Multiplex over registry, reporting tag as its
// own (the tag new Contexts are created with by default).
func NewMultiplex(registry *Registry, tag Tag) *Multiplex {
	return &Multiplex{registry: registry, tag: tag}
}

func (m *Multiplex) Tag() Tag { return m.tag }

func (m *Multiplex) Encode(ctx *Context, v interface{}, name string) error {
	c, err := m.registry.Lookup(ctx.Tag())
	if err != nil {
		return err
	}
	return c.Encode(ctx, v, name)
}

func (m *Multiplex) Decode(ctx *Context, v interface{}, name string) error {
	c, err := m.registry.Lookup(ctx.Tag())
	if err != nil {
		return err
	}
	return c.Decode(ctx, v, name)
}

// ByteSize sizes v with the codec registered under the Multiplex's own
// tag; sizing is stream-free, so there is no Context to dispatch on.
func (m *Multiplex) ByteSize(v interface{}) (int, error) {
	c, err := m.registry.Lookup(m.tag)
	if err != nil {
		return 0, err
	}
	return c.ByteSize(v)
}

var _ Codec = (*Multiplex)(nil)
