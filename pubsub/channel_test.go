package pubsub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/errors"
	"github.com/isml-go/isml/filter"
	"github.com/isml-go/isml/message"
	"github.com/stretchr/testify/require"
)

const chatType = isml.MessageType(1)

func newFactory(t *testing.T) *message.MessageFactory {
	t.Helper()
	f := message.NewMessageFactory()
	d := message.NewMessageDescriptor(chatType)
	_, err := message.RegisterField[string](d, "text")
	require.NoError(t, err)
	require.NoError(t, f.AddDescriptor(d))
	return f
}

type fakeSubscriber struct {
	id     isml.SessionId
	active bool

	mu       sync.Mutex
	received []*message.Message
	failSend bool
}

func (s *fakeSubscriber) ID() isml.SessionId { return s.id }
func (s *fakeSubscriber) Active() bool       { return s.active }
func (s *fakeSubscriber) Send(msg *message.Message) error {
	if s.failSend {
		return errors.New(errors.ErrTransportNotStarted, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, msg)
	return nil
}

func (s *fakeSubscriber) Received() []*message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func TestSubscribeRejectsDuplicate(t *testing.T) {
	ch := NewChannel(nil, nil)
	sub := &fakeSubscriber{id: 1, active: true}

	require.NoError(t, ch.Subscribe(sub))
	require.Error(t, ch.Subscribe(sub))
	require.Equal(t, 1, ch.Len())
}

func TestUnsubscribeUnknownFails(t *testing.T) {
	ch := NewChannel(nil, nil)
	require.Error(t, ch.Unsubscribe(isml.SessionId(42)))
}

func TestSendFanOutClonesWithFreshMessageId(t *testing.T) {
	factory := newFactory(t)
	original, err := factory.CreateMessage(chatType, isml.NextMessageId(), nil)
	require.NoError(t, err)
	require.NoError(t, message.SetValue(original, "text", "hello"))

	ch := NewChannel(nil, nil)
	sub1 := &fakeSubscriber{id: 1, active: true}
	sub2 := &fakeSubscriber{id: 2, active: true}
	require.NoError(t, ch.Subscribe(sub1))
	require.NoError(t, ch.Subscribe(sub2))

	require.NoError(t, ch.Send(original))

	for _, sub := range []*fakeSubscriber{sub1, sub2} {
		received := sub.Received()
		require.Len(t, received, 1)
		require.NotEqual(t, original.ID(), received[0].ID())
		text, err := message.Field[string](received[0], "text")
		require.NoError(t, err)
		require.Equal(t, "hello", text)
	}
}

func TestSendEvictsInactiveSubscriberAndNotifiesReason(t *testing.T) {
	factory := newFactory(t)
	msg, err := factory.CreateMessage(chatType, isml.NextMessageId(), nil)
	require.NoError(t, err)
	require.NoError(t, message.SetValue(msg, "text", "ping"))

	ch := NewChannel(nil, nil)
	active := &fakeSubscriber{id: 1, active: true}
	stopped := &fakeSubscriber{id: 2, active: false}
	require.NoError(t, ch.Subscribe(active))
	require.NoError(t, ch.Subscribe(stopped))

	var mu sync.Mutex
	var reasons []ReasonForLeaving
	ch.AddListener(listenerFunc(func(sub Subscriber, reason ReasonForLeaving) {
		mu.Lock()
		defer mu.Unlock()
		reasons = append(reasons, reason)
	}))

	require.NoError(t, ch.Send(msg))

	require.Len(t, active.Received(), 1)
	require.Len(t, stopped.Received(), 0)
	require.Equal(t, 1, ch.Len())
	require.Equal(t, []ReasonForLeaving{SubscriberTransportHasBeenStopped}, reasons)
}

func TestSendEvictsSubscriberWhoseSendFails(t *testing.T) {
	factory := newFactory(t)
	msg, err := factory.CreateMessage(chatType, isml.NextMessageId(), nil)
	require.NoError(t, err)
	require.NoError(t, message.SetValue(msg, "text", "ping"))

	ch := NewChannel(nil, nil)
	failing := &fakeSubscriber{id: 1, active: true, failSend: true}
	require.NoError(t, ch.Subscribe(failing))

	require.NoError(t, ch.Send(msg))
	require.Equal(t, 0, ch.Len())
}

func TestSubscribeWithFilterSkipsNonMatchingWithoutEvicting(t *testing.T) {
	factory := newFactory(t)
	msg, err := factory.CreateMessage(chatType, isml.NextMessageId(), nil)
	require.NoError(t, err)
	require.NoError(t, message.SetValue(msg, "text", "ping"))

	rejectAll := filter.NewRuleBasedFilter(filter.ForbidAllExceptPermitted)

	ch := NewChannel(nil, nil)
	open := &fakeSubscriber{id: 1, active: true}
	closed := &fakeSubscriber{id: 2, active: true}
	require.NoError(t, ch.Subscribe(open))
	require.NoError(t, ch.SubscribeWithFilter(closed, rejectAll))

	require.NoError(t, ch.Send(msg))

	require.Len(t, open.Received(), 1)
	require.Len(t, closed.Received(), 0)
	require.Equal(t, 2, ch.Len())
}

func TestSendWithProducerTailorsPerSubscriber(t *testing.T) {
	factory := newFactory(t)
	ch := NewChannel(nil, nil)
	sub1 := &fakeSubscriber{id: 1, active: true}
	sub2 := &fakeSubscriber{id: 2, active: true}
	require.NoError(t, ch.Subscribe(sub1))
	require.NoError(t, ch.Subscribe(sub2))

	require.NoError(t, ch.SendWithProducer(func(sub Subscriber) (*message.Message, error) {
		msg, err := factory.CreateMessage(chatType, isml.NextMessageId(), nil)
		require.NoError(t, err)
		require.NoError(t, message.SetValue(msg, "text", fmt.Sprintf("%d", sub.ID())))
		return msg, nil
	}))

	text1, err := message.Field[string](sub1.Received()[0], "text")
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("%d", sub1.ID()), text1)
}

type listenerFunc func(sub Subscriber, reason ReasonForLeaving)

func (f listenerFunc) OnUnsubscribed(sub Subscriber, reason ReasonForLeaving) {
	f(sub, reason)
}
