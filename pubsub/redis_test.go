package pubsub

import (
	"testing"

	"github.com/go-redis/redis"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/codec"
	"github.com/isml-go/isml/message"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	channels []string
	payloads [][]byte
}

func (p *fakePublisher) Publish(channel string, msg interface{}) *redis.IntCmd {
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, msg.([]byte))
	return redis.NewIntResult(1, nil)
}

func TestMirrorReceivesEncodedBroadcast(t *testing.T) {
	factory := newFactory(t)
	publisher := &fakePublisher{}

	ch := NewChannel(nil, nil).WithMirror(NewRedisMirror(publisher, "isml.broadcast", codec.NewBinaryCodec()))
	sub := &fakeSubscriber{id: 1, active: true}
	require.NoError(t, ch.Subscribe(sub))

	msg, err := factory.CreateMessage(chatType, isml.NextMessageId(), nil)
	require.NoError(t, err)
	require.NoError(t, message.SetValue(msg, "text", "hi"))
	require.NoError(t, ch.Send(msg))

	require.Equal(t, []string{"isml.broadcast"}, publisher.channels)
	require.Len(t, publisher.payloads, 1)

	// the payload is the same frame body the transports put on the wire:
	// message type then fields in schema order.
	c := codec.NewBinaryCodec()
	size, err := msg.ByteSize(c)
	require.NoError(t, err)
	require.Len(t, publisher.payloads[0], size)
}

func TestMirrorFailureDoesNotAffectSubscribers(t *testing.T) {
	factory := newFactory(t)

	ch := NewChannel(nil, nil).WithMirror(failingMirror{})
	sub := &fakeSubscriber{id: 1, active: true}
	require.NoError(t, ch.Subscribe(sub))

	msg, err := factory.CreateMessage(chatType, isml.NextMessageId(), nil)
	require.NoError(t, err)
	require.NoError(t, ch.Send(msg))

	require.Len(t, sub.Received(), 1)
	require.Equal(t, 1, ch.Len())
}

type failingMirror struct{}

func (failingMirror) Publish(msg *message.Message) error {
	return redis.Nil
}
