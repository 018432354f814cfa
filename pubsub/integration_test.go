package pubsub

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/codec"
	"github.com/isml-go/isml/message"
	"github.com/isml-go/isml/session"
	"github.com/isml-go/isml/transport"
	"github.com/stretchr/testify/require"
)

// newSessionPair dials a session over net.Pipe and returns it alongside
// the peer transport so the test can observe what the session sends.
func newSessionPair(t *testing.T, mgr *session.Manager, factory *message.MessageFactory) (*session.Session, *transport.FramedTransport) {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	client := transport.NewFramedTransport(transport.FramedTransportProps{
		Conn:    clientConn,
		Codec:   codec.NewBinaryCodec(),
		Factory: factory,
	})
	peer := transport.NewFramedTransport(transport.FramedTransportProps{
		Conn:    serverConn,
		Codec:   codec.NewBinaryCodec(),
		Factory: factory,
	})
	require.NoError(t, peer.Start())

	s, err := mgr.CreateSession(client)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Stop()
		_ = peer.Stop()
	})
	return s, peer
}

func TestBroadcastOverRealSessionsEvictsStoppedSubscriber(t *testing.T) {
	factory := newFactory(t)
	mgr := session.NewManager(factory, nil, nil)

	alive, alivePeer := newSessionPair(t, mgr, factory)
	stopped, _ := newSessionPair(t, mgr, factory)

	ch := NewChannel(nil, nil)
	require.NoError(t, ch.Subscribe(alive))
	require.NoError(t, ch.Subscribe(stopped))

	var mu sync.Mutex
	var evicted []isml.SessionId
	var reasons []ReasonForLeaving
	ch.AddListener(listenerFunc(func(sub Subscriber, reason ReasonForLeaving) {
		mu.Lock()
		defer mu.Unlock()
		evicted = append(evicted, sub.ID())
		reasons = append(reasons, reason)
	}))

	require.NoError(t, stopped.Shutdown())
	require.False(t, stopped.Active())

	msg, err := alive.NewMessage(chatType)
	require.NoError(t, err)
	require.NoError(t, message.SetValue(msg, "text", "to everyone"))
	require.NoError(t, ch.Send(msg))

	require.Equal(t, 1, ch.Len())
	mu.Lock()
	require.Equal(t, []isml.SessionId{stopped.ID()}, evicted)
	require.Equal(t, []ReasonForLeaving{SubscriberTransportHasBeenStopped}, reasons)
	mu.Unlock()

	// the surviving subscriber's peer reads the broadcast off the wire.
	require.Eventually(t, func() bool {
		got, ok := alivePeer.Receive()
		if !ok {
			return false
		}
		text, err := message.Field[string](got, "text")
		return err == nil && text == "to everyone"
	}, time.Second, time.Millisecond)
}
