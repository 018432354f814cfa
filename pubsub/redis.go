package pubsub

import (
	"bytes"

	"github.com/go-redis/redis"
	stderr "github.com/pkg/errors"

	"github.com/isml-go/isml/codec"
	"github.com/isml-go/isml/message"
)

// RedisPublisher is the subset of go-redis/redis's client this package
// depends on, narrowed to the one call RedisMirror makes. *redis.Client
// satisfies it directly.
type RedisPublisher interface {
	Publish(channel string, message interface{}) *redis.IntCmd
}

// RedisMirror is an optional Channel decorator that republishes every
// broadcast message's binary-encoded bytes to a Redis pub/sub channel
// for out-of-process observers. It is a live fan-out mirror, not a
// store-and-forward queue: nothing is persisted or replayed, so a
// mirror subscriber that is down when a message is published simply
// misses it.
type RedisMirror struct {
	client  RedisPublisher
	channel string
	codec   codec.Codec
}

// NewRedisMirror returns a Mirror that republishes to channel on client,
// encoding messages with c (typically codec.NewBinaryCodec(), the same
// codec the transport layer uses on the wire).
func NewRedisMirror(client RedisPublisher, channel string, c codec.Codec) *RedisMirror {
	return &RedisMirror{client: client, channel: channel, codec: c}
}

// Publish implements Mirror.
func (m *RedisMirror) Publish(msg *message.Message) error {
	var buf bytes.Buffer
	ctx := codec.NewEncodeContext(m.codec.Tag(), &buf)
	if err := msg.Encode(m.codec, ctx); err != nil {
		return err
	}
	return stderr.Wrap(m.client.Publish(m.channel, buf.Bytes()).Err(), "failed to publish to redis")
}
