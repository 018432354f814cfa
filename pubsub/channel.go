// Package pubsub implements a fan-out broadcast primitive over sessions:
// a channel with self-healing subscriber membership that evicts dead
// subscribers automatically while broadcasting. The optional RedisMirror
// decorator (redis.go) republishes every broadcast to an out-of-process
// Redis channel.
package pubsub

import (
	"context"
	"sync"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/errors"
	"github.com/isml-go/isml/filter"
	"github.com/isml-go/isml/log"
	"github.com/isml-go/isml/message"
	"github.com/isml-go/isml/metrics"
)

// Subscriber is the capability a pub/sub channel needs from a session:
// its identity, liveness, and the ability to receive a message.
type Subscriber interface {
	ID() isml.SessionId
	Active() bool
	Send(msg *message.Message) error
}

// ReasonForLeaving records why a subscriber was removed from a channel,
// carried to OnUnsubscribed so a listener can distinguish a voluntary
// unsubscribe from an eviction.
type ReasonForLeaving int

const (
	// SubscriberLeftChannelOnHisOwn means Unsubscribe was called
	// explicitly for this subscriber.
	SubscriberLeftChannelOnHisOwn ReasonForLeaving = iota
	// SubscriberTransportHasBeenStopped means the subscriber was evicted
	// during broadcast because it was no longer active, or because
	// sending to it failed.
	SubscriberTransportHasBeenStopped
)

func (r ReasonForLeaving) String() string {
	switch r {
	case SubscriberLeftChannelOnHisOwn:
		return "SubscriberLeftChannelOnHisOwn"
	case SubscriberTransportHasBeenStopped:
		return "SubscriberTransportHasBeenStopped"
	default:
		return "Unknown"
	}
}

// MessageChannel is the sending face of any channel kind: the
// capability handed to code that publishes messages but does not manage
// membership. *Channel satisfies it.
type MessageChannel interface {
	Send(msg *message.Message) error
}

// Listener receives unsubscribe notifications from a Channel.
type Listener interface {
	OnUnsubscribed(sub Subscriber, reason ReasonForLeaving)
}

// Producer derives a per-subscriber message from sub, used by
// Channel.SendWithProducer when subscribers should not all receive an
// identical clone.
type Producer func(sub Subscriber) (*message.Message, error)

// Channel is a broadcast primitive over subscribers unique by
// SessionId, under a single dedicated mutex held for the duration of a
// broadcast so a concurrent subscribe/unsubscribe cannot interleave
// with it.
type Channel struct {
	mirror Mirror
	gauges *metrics.Gauges
	logger log.Logger

	mu          sync.Mutex
	subscribers map[isml.SessionId]subscription
	listeners   []Listener
}

// subscription pairs a subscriber with its optional outbound filter.
type subscription struct {
	sub    Subscriber
	filter filter.MessageFilter
}

// Mirror is an optional decorator a Channel republishes every broadcast
// message's encoded bytes to, for out-of-process observers. See
// RedisMirror.
type Mirror interface {
	Publish(msg *message.Message) error
}

// NewChannel returns an empty Channel. gauges, if non-nil, is kept in
// sync with the subscriber count; logger, if non-nil, receives
// membership changes and evictions (nil means log.Discard()).
func NewChannel(gauges *metrics.Gauges, logger log.Logger) *Channel {
	if logger == nil {
		logger = log.Discard()
	}
	return &Channel{
		gauges:      gauges,
		logger:      logger.ForClass("pubsub", "Channel"),
		subscribers: make(map[isml.SessionId]subscription),
	}
}

// WithMirror attaches m to the channel: every message a subsequent
// broadcast delivers to a subscriber is also republished to m, once per
// delivery, so a broadcast to N subscribers publishes N times and a
// broadcast to none publishes nothing. Passing nil detaches any
// previously attached mirror.
// The channel behaves identically without one.
func (c *Channel) WithMirror(m Mirror) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirror = m
	return c
}

// AddListener registers l for OnUnsubscribed notifications.
func (c *Channel) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Subscribe adds sub to the channel. It fails with
// errors.ErrAlreadySubscribed if a subscriber with the same SessionId is
// already present.
func (c *Channel) Subscribe(sub Subscriber) error {
	return c.SubscribeWithFilter(sub, nil)
}

// SubscribeWithFilter adds sub to the channel with an outbound filter:
// broadcasts whose message does not match f are skipped for this
// subscriber without evicting it. A nil filter accepts everything.
func (c *Channel) SubscribeWithFilter(sub Subscriber, f filter.MessageFilter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.subscribers[sub.ID()]; exists {
		return errors.New(errors.ErrAlreadySubscribed, nil)
	}
	c.subscribers[sub.ID()] = subscription{sub: sub, filter: f}
	c.gauges.SetPubSubSubscribers(len(c.subscribers))
	c.logger.Debug(context.Background(), "subscriber added", log.MapFields{"sessionId": sub.ID()})
	return nil
}

// Unsubscribe removes the subscriber registered under id. It fails with
// errors.ErrNotSubscribed if none is registered. OnUnsubscribed fires
// with SubscriberLeftChannelOnHisOwn.
func (c *Channel) Unsubscribe(id isml.SessionId) error {
	c.mu.Lock()
	entry, ok := c.subscribers[id]
	if ok {
		delete(c.subscribers, id)
	}
	count := len(c.subscribers)
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	if !ok {
		return errors.New(errors.ErrNotSubscribed, nil)
	}

	c.gauges.SetPubSubSubscribers(count)
	c.logger.Debug(context.Background(), "subscriber removed", log.MapFields{"sessionId": id})
	c.notify(listeners, entry.sub, SubscriberLeftChannelOnHisOwn)
	return nil
}

// Send broadcasts a clone of msg, each with a freshly allocated
// MessageId, to every active subscriber. Subscribers that are no longer
// active, or whose Send fails, are evicted once the broadcast loop
// completes, with OnUnsubscribed firing
// SubscriberTransportHasBeenStopped for each. The dedicated mutex is
// held for the whole broadcast, so no concurrent Subscribe/Unsubscribe
// can interleave with it.
func (c *Channel) Send(msg *message.Message) error {
	return c.broadcast(func(sub Subscriber) (*message.Message, error) {
		return msg.Clone(isml.NextMessageId()), nil
	})
}

// SendWithProducer broadcasts a per-subscriber message obtained from
// producer(sub) to every active subscriber, with the same self-healing
// eviction as Send.
func (c *Channel) SendWithProducer(producer Producer) error {
	return c.broadcast(producer)
}

func (c *Channel) broadcast(produce Producer) error {
	c.mu.Lock()

	var dead []Subscriber
	for _, entry := range c.subscribers {
		sub := entry.sub
		if !sub.Active() {
			dead = append(dead, sub)
			continue
		}

		out, err := produce(sub)
		if err != nil {
			dead = append(dead, sub)
			continue
		}
		if entry.filter != nil && !entry.filter.Matches(out) {
			continue
		}
		if err := sub.Send(out); err != nil {
			dead = append(dead, sub)
			continue
		}
		if c.mirror != nil {
			_ = c.mirror.Publish(out)
		}
	}

	for _, sub := range dead {
		delete(c.subscribers, sub.ID())
	}
	c.gauges.SetPubSubSubscribers(len(c.subscribers))
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, sub := range dead {
		c.logger.Warn(context.Background(), "evicting dead subscriber",
			log.MapFields{"sessionId": sub.ID()})
		c.notify(listeners, sub, SubscriberTransportHasBeenStopped)
	}
	return nil
}

// Len reports how many subscribers are currently registered.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

// snapshotListeners copies the listener slice; callers must hold c.mu.
func (c *Channel) snapshotListeners() []Listener {
	snapshot := make([]Listener, len(c.listeners))
	copy(snapshot, c.listeners)
	return snapshot
}

func (c *Channel) notify(listeners []Listener, sub Subscriber, reason ReasonForLeaving) {
	for _, l := range listeners {
		invokeSwallowingPanic(l, sub, reason)
	}
}

func invokeSwallowingPanic(l Listener, sub Subscriber, reason ReasonForLeaving) {
	defer func() {
		_ = recover()
	}()
	l.OnUnsubscribed(sub, reason)
}

var _ MessageChannel = (*Channel)(nil)
