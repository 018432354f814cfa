package transport

import (
	"context"
	"net"

	"github.com/isml-go/isml/codec"
	"github.com/isml-go/isml/isurl"
	"github.com/isml-go/isml/log"
	"github.com/isml-go/isml/message"
	"github.com/isml-go/isml/metrics"
)

// TCPFactoryProps configures NewTCPFactory. Codec and Factory are
// required; Gauges and Logger are optional.
type TCPFactoryProps struct {
	Codec   codec.Codec
	Factory *message.MessageFactory
	Gauges  *metrics.Gauges
	Logger  log.Logger
}

// TCPFactory produces FramedTransports over net.Dial'd TCP
// connections: given a URL like tcp://host:port, it dials the authority
// and wraps the resulting connection in a FramedTransport. The returned
// transport is not started; whoever owns it (typically a
// session.Manager via a MessagingService) starts it.
type TCPFactory struct {
	codec   codec.Codec
	factory *message.MessageFactory
	gauges  *metrics.Gauges
	logger  log.Logger
}

// NewTCPFactory returns a TCPFactory configured by props.
func NewTCPFactory(props TCPFactoryProps) *TCPFactory {
	return &TCPFactory{codec: props.Codec, factory: props.Factory, gauges: props.Gauges, logger: props.Logger}
}

// New dials u's authority over TCP and returns a FramedTransport over
// the resulting connection, not yet started.
func (f *TCPFactory) New(ctx context.Context, u isurl.URL) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", u.Authority())
	if err != nil {
		return nil, err
	}

	return NewFramedTransport(FramedTransportProps{
		Conn:    conn,
		Codec:   f.codec,
		Factory: f.factory,
		Gauges:  f.gauges,
		Logger:  f.logger,
	}), nil
}
