// Command isml-gatewayd is a small demo service wiring the library's
// ambient stack (config, logging, metrics) to its domain stack (message
// factory, session manager, pub/sub channel): it accepts TCP
// connections, registers each as a subscriber on a broadcast channel,
// and echoes every message it receives from one peer out to every
// connected peer, the sender included. It is the one place every package gets constructed
// and wired together.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/codec"
	"github.com/isml-go/isml/config"
	"github.com/isml-go/isml/dispatch"
	"github.com/isml-go/isml/log"
	"github.com/isml-go/isml/message"
	"github.com/isml-go/isml/metrics"
	"github.com/isml-go/isml/pubsub"
	"github.com/isml-go/isml/session"
	"github.com/isml-go/isml/transport"
)

// ChatMessageType is the one message type this demo registers: a
// broadcast chat line relayed through pubsub.Channel.Send. It also
// carries a srcMsgId field, so a peer can use it as the reply to its own
// Session.Request; the demo itself never issues a request.
const ChatMessageType = isml.MessageType(0)

func buildFactory() *message.MessageFactory {
	factory := message.NewMessageFactory()

	descriptor := message.NewMessageDescriptor(ChatMessageType)
	if _, err := message.RegisterField[string](descriptor, "text"); err != nil {
		panic(err)
	}
	if _, err := message.RegisterField[isml.MessageId](descriptor, "srcMsgId"); err != nil {
		panic(err)
	}
	if err := factory.AddDescriptor(descriptor); err != nil {
		panic(err)
	}

	return factory
}

func parseLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func main() {
	cfg := &Config{}
	parser, err := config.Generate(cfg)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	if err := parser.Parse(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	logger := log.NewLogrus(log.LogrusLoggerProperties{
		Level: parseLevel(cfg.Logging.Level),
	}).ForClass("cmd/isml-gatewayd", "main")

	ctx := context.Background()
	logger.Info(ctx, "starting isml-gatewayd", cfg)

	registry := prometheus.NewRegistry()
	gauges := metrics.NewGauges(registry)
	stopMetrics := metrics.StartInstrumentation(ctx, &cfg.Metrics, registry, logger)
	defer stopMetrics()

	factory := buildFactory()
	sessions := session.NewManager(factory, gauges, logger)
	channel := pubsub.NewChannel(gauges, logger)

	sessions.AddListener(subscribingListener{channel: channel})

	controller := dispatch.NewController(sessions)
	controller.Dispatcher().AddHandler(ChatMessageType, func(msg *message.Message) {
		if err := channel.Send(msg); err != nil {
			logger.Warn(ctx, "broadcast failed", log.MapFields{"err": err.Error()})
		}
	})

	listenAddr := fmt.Sprintf("%s:%d", cfg.Bind.Interface, cfg.Bind.Port)
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		logger.Fatal(ctx, "failed to listen", log.MapFields{"err": err.Error(), "addr": listenAddr})
		os.Exit(1)
	}
	logger.Info(ctx, "listening", log.MapFields{"addr": listenAddr})

	go acceptLoop(ctx, ln, factory, sessions, controller, gauges, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info(ctx, "shutting down")
	_ = ln.Close()
	sessions.TerminateAll()
}

// subscribingListener subscribes every newly opened session to the
// broadcast channel and unsubscribes it once the session manager
// terminates it, so the channel's membership always mirrors the
// manager's.
type subscribingListener struct {
	channel *pubsub.Channel
}

func (l subscribingListener) OnSessionOpened(s *session.Session) {
	_ = l.channel.Subscribe(s)
}

func (l subscribingListener) OnSessionTerminating(s *session.Session) {
	_ = l.channel.Unsubscribe(s.ID())
}

func (l subscribingListener) OnSessionTerminated(id isml.SessionId) {}

func acceptLoop(
	ctx context.Context,
	ln net.Listener,
	factory *message.MessageFactory,
	sessions *session.Manager,
	controller *dispatch.Controller,
	gauges *metrics.Gauges,
	logger log.Logger,
) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			logger.Info(ctx, "listener closed", log.MapFields{"err": err.Error()})
			return
		}

		t := transport.NewFramedTransport(transport.FramedTransportProps{
			Conn:    conn,
			Codec:   codec.NewBinaryCodec(),
			Factory: factory,
			Gauges:  gauges,
			Logger:  logger,
		})

		s, err := sessions.CreateSession(t)
		if err != nil {
			logger.Warn(ctx, "failed to create session", log.MapFields{"err": err.Error()})
			continue
		}

		go relay(s, controller)
	}
}

// relay pumps a session's incoming queue through the controller's
// dispatcher, which routes each message to its type's handler.
func relay(s *session.Session, controller *dispatch.Controller) {
	for s.Active() {
		if controller.DrainSession(s) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
}
