package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/codec"
	"github.com/isml-go/isml/errors"
	"github.com/isml-go/isml/internal/listenable"
	"github.com/isml-go/isml/log"
	"github.com/isml-go/isml/message"
	"github.com/isml-go/isml/metrics"
)

const (
	lengthPrefixSize     = 2
	defaultRequestExpiry = 30 * time.Second
	defaultSweepInterval = 1 * time.Second
	defaultQueueDepth    = 256
)

// FramedTransportProps configures a FramedTransport. Conn, Codec, and
// Factory are required; Gauges, RequestExpiry, and SweepInterval are
// optional (nil/zero picks sensible defaults).
type FramedTransportProps struct {
	// Conn is the underlying bidirectional stream. A net.Conn satisfies
	// this directly; tests commonly use net.Pipe().
	Conn io.ReadWriteCloser

	// Codec encodes/decodes frame bodies. Typically codec.NewBinaryCodec().
	Codec codec.Codec

	// Factory resolves an incoming MessageType to its registered schema.
	Factory *message.MessageFactory

	// Session is the owning session a decoded message is bound to. May
	// be nil if the transport is used outside a Session.
	Session message.SessionRef

	// Gauges, if non-nil, is updated with frame and pending-request
	// counts. All of its methods are nil-receiver safe, so passing nil
	// here simply disables instrumentation.
	Gauges *metrics.Gauges

	// Logger, if non-nil, receives the transport's state transitions
	// and I/O failures. Nil means log.Discard().
	Logger log.Logger

	// RequestExpiry overrides the default 30-second pending-request
	// expiry. Zero means "use the default."
	RequestExpiry time.Duration

	// SweepInterval overrides the default 1-second expiry-sweep period.
	// Zero means "use the default"; tests use this to sweep faster than
	// a full second so expiry assertions don't need to sleep that long.
	SweepInterval time.Duration
}

type pendingEntry struct {
	request    *PendingRequest
	insertedAt time.Time
}

// FramedTransport implements Transport over a length-prefixed framing
// of binary-encoded messages: a 2-byte big-endian length prefix
// followed by a body of exactly that many bytes minus the prefix
// itself. It owns three goroutines started by Start: a read loop, a
// write loop, and an expiry-sweep loop.
type FramedTransport struct {
	conn    io.ReadWriteCloser
	codec   codec.Codec
	factory *message.MessageFactory
	session message.SessionRef
	gauges  *metrics.Gauges
	logger  log.Logger

	requestExpiry time.Duration
	sweepInterval time.Duration

	state int32

	mu      sync.Mutex
	pending map[isml.MessageId]*pendingEntry

	incoming chan *message.Message
	outgoing chan *message.Message

	listeners *listenable.List[TransportListener]

	stopCh    chan struct{}
	stoppedCh chan struct{}
	stopOnce  *sync.Once
	wg        sync.WaitGroup
}

// NewFramedTransport constructs a FramedTransport in the Stopped state.
// Call Start to begin reading and writing.
func NewFramedTransport(props FramedTransportProps) *FramedTransport {
	requestExpiry := props.RequestExpiry
	if requestExpiry <= 0 {
		requestExpiry = defaultRequestExpiry
	}
	sweepInterval := props.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	logger := props.Logger
	if logger == nil {
		logger = log.Discard()
	}

	return &FramedTransport{
		conn:          props.Conn,
		codec:         props.Codec,
		factory:       props.Factory,
		session:       props.Session,
		gauges:        props.Gauges,
		logger:        logger.ForClass("transport", "FramedTransport"),
		requestExpiry: requestExpiry,
		sweepInterval: sweepInterval,
		pending:       make(map[isml.MessageId]*pendingEntry),
		incoming:      make(chan *message.Message, defaultQueueDepth),
		outgoing:      make(chan *message.Message, defaultQueueDepth),
		listeners:     listenable.New[TransportListener](),
	}
}

// State implements Transport.
func (t *FramedTransport) State() State {
	return State(atomic.LoadInt32(&t.state))
}

// AddListener implements Transport.
func (t *FramedTransport) AddListener(l TransportListener) {
	t.listeners.Add(l)
}

// Start implements Transport.
func (t *FramedTransport) Start() error {
	if !atomic.CompareAndSwapInt32(&t.state, int32(Stopped), int32(StartPending)) {
		return errors.New(errors.ErrInvalidOperation, nil)
	}
	t.notifyState(Stopped, StartPending)

	t.stopCh = make(chan struct{})
	t.stoppedCh = make(chan struct{})
	t.stopOnce = &sync.Once{}

	t.wg.Add(3)
	go t.readLoop()
	go t.writeLoop()
	go t.sweepLoop()

	atomic.StoreInt32(&t.state, int32(Started))
	t.notifyState(StartPending, Started)
	t.logger.Debug(context.Background(), "transport started")
	return nil
}

// Stop implements Transport. It blocks until the read, write, and sweep
// loops have exited and every pending request has been failed.
func (t *FramedTransport) Stop() error {
	current := t.State()
	if current != Started && current != StartPending {
		return errors.New(errors.ErrInvalidOperation, nil)
	}

	t.triggerShutdown(nil)
	<-t.stoppedCh
	return nil
}

// Send implements Transport.
func (t *FramedTransport) Send(msg *message.Message) error {
	if t.State() != Started {
		return errors.New(errors.ErrTransportNotStarted, nil)
	}
	return t.enqueue(msg)
}

// Request implements Transport.
func (t *FramedTransport) Request(msg *message.Message) (*PendingRequest, error) {
	if t.State() != Started {
		return nil, errors.New(errors.ErrTransportNotStarted, nil)
	}

	req := newPendingRequest()
	t.mu.Lock()
	t.pending[msg.ID()] = &pendingEntry{request: req, insertedAt: time.Now()}
	pendingCount := len(t.pending)
	t.mu.Unlock()
	t.gauges.SetPendingRequests(pendingCount)

	if err := t.enqueue(msg); err != nil {
		t.mu.Lock()
		delete(t.pending, msg.ID())
		pendingCount = len(t.pending)
		t.mu.Unlock()
		t.gauges.SetPendingRequests(pendingCount)
		return nil, err
	}
	return req, nil
}

// Receive implements Transport.
func (t *FramedTransport) Receive() (*message.Message, bool) {
	select {
	case msg := <-t.incoming:
		return msg, true
	default:
		return nil, false
	}
}

func (t *FramedTransport) enqueue(msg *message.Message) error {
	select {
	case t.outgoing <- msg:
		return nil
	case <-t.stopCh:
		return errors.New(errors.ErrTransportNotStarted, nil)
	}
}

// readLoop reads a length prefix, reads the body, decodes it, and
// either completes a correlated pending request or pushes to the
// incoming queue. Any read error - including EOF and connection-refused
// - transitions the transport to StopPending.
func (t *FramedTransport) readLoop() {
	defer t.wg.Done()

	for {
		var lengthPrefix [lengthPrefixSize]byte
		if _, err := io.ReadFull(t.conn, lengthPrefix[:]); err != nil {
			t.triggerShutdown(err)
			return
		}

		length := binary.BigEndian.Uint16(lengthPrefix[:])
		if length < lengthPrefixSize {
			t.triggerShutdown(errors.New(errors.ErrFrameTooLarge, nil))
			return
		}

		body := make([]byte, int(length)-lengthPrefixSize)
		if _, err := io.ReadFull(t.conn, body); err != nil {
			t.triggerShutdown(err)
			return
		}
		t.gauges.IncFramesRead()

		ctx := codec.NewDecodeContext(t.codec.Tag(), bytes.NewReader(body))
		msg, ok, err := t.factory.DecodeMessage(t.codec, ctx, t.session)
		if err != nil {
			t.logger.Warn(context.Background(), "failed to decode inbound frame; dropping it",
				log.MapFields{"err": err.Error()})
			t.notifyError(err)
			continue
		}
		if !ok {
			t.logger.Debug(context.Background(), "dropping frame with unregistered message type")
			continue
		}

		t.deliver(msg)
	}
}

// deliver completes a pending request whose srcMsgId matches msg, or
// otherwise pushes msg to the incoming queue.
func (t *FramedTransport) deliver(msg *message.Message) {
	if srcID, err := message.Field[isml.MessageId](msg, "srcMsgId"); err == nil {
		t.mu.Lock()
		entry, ok := t.pending[srcID]
		if ok {
			delete(t.pending, srcID)
		}
		pendingCount := len(t.pending)
		t.mu.Unlock()

		if ok {
			t.gauges.SetPendingRequests(pendingCount)
			entry.request.complete(msg, nil)
			return
		}
	}

	select {
	case t.incoming <- msg:
	case <-t.stopCh:
	}
}

// writeLoop keeps a single write in flight at a time, draining the
// outgoing queue in order. A message that fails to encode (e.g. exceeds
// the frame size limit) is reported to listeners and skipped; it does
// not bring the transport down. A failure writing to the underlying
// stream does.
func (t *FramedTransport) writeLoop() {
	defer t.wg.Done()

	for {
		select {
		case msg := <-t.outgoing:
			frame, err := t.frame(msg)
			if err != nil {
				t.logger.Warn(context.Background(), "failed to encode outbound message; dropping it",
					log.MapFields{"messageId": msg.ID(), "err": err.Error()})
				t.notifyError(err)
				continue
			}
			if _, err := t.conn.Write(frame); err != nil {
				t.triggerShutdown(err)
				return
			}
			t.gauges.IncFramesWritten()
		case <-t.stopCh:
			return
		}
	}
}

func (t *FramedTransport) frame(msg *message.Message) ([]byte, error) {
	bodySize, err := msg.ByteSize(t.codec)
	if err != nil {
		return nil, err
	}

	frameLength := lengthPrefixSize + bodySize
	if frameLength > int(isml.MaxMessageLength) {
		return nil, errors.New(errors.ErrFrameTooLarge, nil)
	}

	buf := bytes.NewBuffer(make([]byte, 0, frameLength))
	var lengthPrefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint16(lengthPrefix[:], uint16(frameLength))
	buf.Write(lengthPrefix[:])

	ctx := codec.NewEncodeContext(t.codec.Tag(), buf)
	if err := msg.Encode(t.codec, ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sweepLoop runs removeExpiredRequests on a ticker owned by the
// transport itself rather than as a function an embedder must remember
// to call.
func (t *FramedTransport) sweepLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.removeExpiredRequests()
		case <-t.stopCh:
			return
		}
	}
}

func (t *FramedTransport) removeExpiredRequests() {
	now := time.Now()

	t.mu.Lock()
	var expired []*PendingRequest
	for id, entry := range t.pending {
		if now.Sub(entry.insertedAt) > t.requestExpiry {
			expired = append(expired, entry.request)
			delete(t.pending, id)
		}
	}
	pendingCount := len(t.pending)
	t.mu.Unlock()

	t.gauges.SetPendingRequests(pendingCount)
	if len(expired) > 0 {
		t.logger.Warn(context.Background(), "expired pending requests",
			log.MapFields{"count": len(expired)})
	}
	for _, req := range expired {
		req.complete(nil, errors.New(errors.ErrRequestExpired, nil))
	}
}

func (t *FramedTransport) failAllPending(cause error) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[isml.MessageId]*pendingEntry)
	t.mu.Unlock()

	t.gauges.SetPendingRequests(0)
	for _, entry := range pending {
		entry.request.complete(nil, errors.New(errors.ErrTransportError, cause))
	}
}

// triggerShutdown moves the transport to StopPending, stops accepting
// new work, and closes the connection. It is idempotent and safe to call
// from the read loop, the write loop, or Stop itself - only the first
// caller does anything. Finalization (waiting for all three loops to
// exit, failing pending requests, transitioning to Stopped) happens on
// its own goroutine so a loop can trigger shutdown without deadlocking
// on its own wg.Done.
func (t *FramedTransport) triggerShutdown(cause error) {
	t.stopOnce.Do(func() {
		previous := t.State()
		atomic.StoreInt32(&t.state, int32(StopPending))
		t.notifyState(previous, StopPending)
		if cause != nil {
			t.logger.Warn(context.Background(), "transport stopping after error",
				log.MapFields{"err": cause.Error()})
			t.notifyError(cause)
		} else {
			t.logger.Debug(context.Background(), "transport stopping")
		}

		close(t.stopCh)
		_ = t.conn.Close()

		go t.finalize(cause)
	})
}

func (t *FramedTransport) finalize(cause error) {
	t.wg.Wait()
	t.failAllPending(cause)
	atomic.StoreInt32(&t.state, int32(Stopped))
	t.notifyState(StopPending, Stopped)
	t.logger.Debug(context.Background(), "transport stopped")
	close(t.stoppedCh)
}

func (t *FramedTransport) notifyState(previous, current State) {
	t.listeners.Invoke(func(l TransportListener) { l.OnStateChanged(previous, current) })
}

func (t *FramedTransport) notifyError(err error) {
	t.listeners.Invoke(func(l TransportListener) { l.OnErrorOccurred(err) })
}

var _ Transport = (*FramedTransport)(nil)
