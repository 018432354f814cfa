package session

import (
	"testing"
	"time"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/message"
	"github.com/stretchr/testify/require"
)

func TestNewMessageBindsSessionAndAllocatesId(t *testing.T) {
	factory := newFactory(t)
	mgr := NewManager(factory, nil, nil)

	client, _ := newPipeTransport(t, factory)
	s, err := mgr.CreateSession(client)
	require.NoError(t, err)

	msg, err := s.NewMessage(pingType)
	require.NoError(t, err)
	require.NotZero(t, msg.ID())
	require.Equal(t, s.ID(), msg.Session().ID())

	second, err := s.NewMessage(pingType)
	require.NoError(t, err)
	require.NotEqual(t, msg.ID(), second.ID())
}

func TestNewMessageUnknownTypeFails(t *testing.T) {
	factory := newFactory(t)
	mgr := NewManager(factory, nil, nil)

	client, _ := newPipeTransport(t, factory)
	s, err := mgr.CreateSession(client)
	require.NoError(t, err)

	_, err = s.NewMessage(isml.MessageType(200))
	require.Error(t, err)
}

func TestSendReachesPeerSession(t *testing.T) {
	factory := newFactory(t)
	mgr := NewManager(factory, nil, nil)

	client, server := newPipeTransport(t, factory)
	s, err := mgr.CreateSession(client)
	require.NoError(t, err)
	peer, err := mgr.CreateSession(server)
	require.NoError(t, err)

	msg, err := s.NewMessage(pingType)
	require.NoError(t, err)
	require.NoError(t, message.SetValue(msg, "value", int32(5)))
	require.NoError(t, s.Send(msg))

	require.Eventually(t, func() bool {
		got, ok := peer.Receive()
		if !ok {
			return false
		}
		v, err := message.Field[int32](got, "value")
		return err == nil && v == int32(5)
	}, time.Second, time.Millisecond)
}

func TestReceiveReturnsFalseWhenQueueEmpty(t *testing.T) {
	factory := newFactory(t)
	mgr := NewManager(factory, nil, nil)

	client, _ := newPipeTransport(t, factory)
	s, err := mgr.CreateSession(client)
	require.NoError(t, err)

	_, ok := s.Receive()
	require.False(t, ok)
}

func TestShutdownDeactivatesSessionAndFailsSend(t *testing.T) {
	factory := newFactory(t)
	mgr := NewManager(factory, nil, nil)

	client, _ := newPipeTransport(t, factory)
	s, err := mgr.CreateSession(client)
	require.NoError(t, err)
	require.True(t, s.Active())

	msg, err := s.NewMessage(pingType)
	require.NoError(t, err)

	require.NoError(t, s.Shutdown())
	require.False(t, s.Active())
	require.Error(t, s.Send(msg))
}

func TestPropertyBagOverwriteAndMiss(t *testing.T) {
	factory := newFactory(t)
	mgr := NewManager(factory, nil, nil)

	client, _ := newPipeTransport(t, factory)
	s, err := mgr.CreateSession(client)
	require.NoError(t, err)

	_, ok := s.Property("subscriptionKey")
	require.False(t, ok)

	s.SetProperty("subscriptionKey", "alpha")
	s.SetProperty("subscriptionKey", "beta")

	v, ok := s.Property("subscriptionKey")
	require.True(t, ok)
	require.Equal(t, "beta", v)
}
