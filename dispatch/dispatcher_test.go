package dispatch

import (
	"net"
	"testing"
	"time"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/codec"
	"github.com/isml-go/isml/filter"
	"github.com/isml-go/isml/message"
	"github.com/isml-go/isml/session"
	"github.com/isml-go/isml/transport"
	"github.com/stretchr/testify/require"
)

const (
	orderType  = isml.MessageType(1)
	cancelType = isml.MessageType(2)
	otherType  = isml.MessageType(3)
)

func newFactory(t *testing.T) *message.MessageFactory {
	t.Helper()
	f := message.NewMessageFactory()
	for _, typ := range []isml.MessageType{orderType, cancelType, otherType} {
		d := message.NewMessageDescriptor(typ)
		_, err := message.RegisterField[int32](d, "value")
		require.NoError(t, err)
		require.NoError(t, f.AddDescriptor(d))
	}
	return f
}

func newMessage(t *testing.T, factory *message.MessageFactory, typ isml.MessageType) *message.Message {
	t.Helper()
	msg, err := factory.CreateMessage(typ, isml.NextMessageId(), nil)
	require.NoError(t, err)
	return msg
}

func TestDispatchRoutesByMessageType(t *testing.T) {
	factory := newFactory(t)
	d := NewDispatcher()

	var orders, cancels []*message.Message
	d.AddHandler(orderType, func(msg *message.Message) { orders = append(orders, msg) })
	d.AddHandler(cancelType, func(msg *message.Message) { cancels = append(cancels, msg) })

	d.Dispatch(newMessage(t, factory, orderType))
	d.Dispatch(newMessage(t, factory, cancelType))
	d.Dispatch(newMessage(t, factory, orderType))

	require.Len(t, orders, 2)
	require.Len(t, cancels, 1)
}

func TestDispatchDropsUnhandledType(t *testing.T) {
	factory := newFactory(t)
	d := NewDispatcher()

	var handled int
	d.AddHandler(orderType, func(*message.Message) { handled++ })

	d.Dispatch(newMessage(t, factory, otherType))
	require.Zero(t, handled)
}

func TestDispatchDelegatesUnhandledType(t *testing.T) {
	factory := newFactory(t)

	var delegated []*message.Message
	delegate := NewDispatcher()
	delegate.AddHandler(otherType, func(msg *message.Message) { delegated = append(delegated, msg) })

	d := NewDispatcher()
	d.AddDelegate(delegate)

	d.Dispatch(newMessage(t, factory, otherType))
	require.Len(t, delegated, 1)
}

func TestDispatchLocalHandlerWinsOverDelegate(t *testing.T) {
	factory := newFactory(t)

	var local, delegated int
	delegate := NewDispatcher()
	delegate.AddHandler(orderType, func(*message.Message) { delegated++ })

	d := NewDispatcher()
	d.AddHandler(orderType, func(*message.Message) { local++ })
	d.AddDelegate(delegate)

	d.Dispatch(newMessage(t, factory, orderType))
	require.Equal(t, 1, local)
	require.Zero(t, delegated)
}

func TestDispatchFilterRejectionGoesToRejectionHandler(t *testing.T) {
	factory := newFactory(t)

	rejectAll := filter.NewRuleBasedFilter(filter.ForbidAllExceptPermitted)

	d := NewDispatcher()
	d.Filter().Add(rejectAll)

	var handled, rejected int
	d.AddHandler(orderType, func(*message.Message) { handled++ })
	d.OnMessageRejected(func(*message.Message) { rejected++ })

	d.Dispatch(newMessage(t, factory, orderType))
	require.Zero(t, handled)
	require.Equal(t, 1, rejected)
}

func TestDispatchSwallowsHandlerPanic(t *testing.T) {
	factory := newFactory(t)
	d := NewDispatcher()

	var after int
	d.AddHandler(orderType, func(*message.Message) { panic("handler blew up") })
	d.AddHandler(cancelType, func(*message.Message) { after++ })

	d.Dispatch(newMessage(t, factory, orderType))
	d.Dispatch(newMessage(t, factory, cancelType))
	require.Equal(t, 1, after)
}

func TestControllerDrainsSessionThroughDispatcher(t *testing.T) {
	factory := newFactory(t)
	mgr := session.NewManager(factory, nil, nil)

	clientConn, serverConn := net.Pipe()
	client := transport.NewFramedTransport(transport.FramedTransportProps{
		Conn:    clientConn,
		Codec:   codec.NewBinaryCodec(),
		Factory: factory,
	})
	server := transport.NewFramedTransport(transport.FramedTransportProps{
		Conn:    serverConn,
		Codec:   codec.NewBinaryCodec(),
		Factory: factory,
	})
	sender, err := mgr.CreateSession(client)
	require.NoError(t, err)
	receiver, err := mgr.CreateSession(server)
	require.NoError(t, err)
	t.Cleanup(mgr.TerminateAll)

	ctl := NewController(mgr)
	var seen []int32
	ctl.Dispatcher().AddHandler(orderType, func(msg *message.Message) {
		v, err := message.Field[int32](msg, "value")
		require.NoError(t, err)
		seen = append(seen, v)
	})

	for i := int32(1); i <= 3; i++ {
		msg, err := sender.NewMessage(orderType)
		require.NoError(t, err)
		require.NoError(t, message.SetValue(msg, "value", i))
		require.NoError(t, sender.Send(msg))
	}

	require.Eventually(t, func() bool {
		ctl.DrainSession(receiver)
		return len(seen) == 3
	}, time.Second, time.Millisecond)
	require.Equal(t, []int32{1, 2, 3}, seen)
}
