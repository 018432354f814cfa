package transport

import "github.com/isml-go/isml/message"

// PendingRequest is the future returned by Transport.Request. The caller
// decides whether and how long to wait on it; completion happens on the
// transport's own read loop, expiry sweep, or shutdown goroutine, never
// on the caller's goroutine.
type PendingRequest struct {
	done chan struct{}
	msg  *message.Message
	err  error
}

func newPendingRequest() *PendingRequest {
	return &PendingRequest{done: make(chan struct{})}
}

// Wait blocks until the request's promise is completed, by a correlated
// reply, by expiry, or by the transport stopping, and returns the reply
// (or the error).
func (p *PendingRequest) Wait() (*message.Message, error) {
	<-p.done
	return p.msg, p.err
}

// Done returns a channel closed once the request completes, letting a
// caller select on it alongside other work instead of blocking in Wait.
func (p *PendingRequest) Done() <-chan struct{} {
	return p.done
}

func (p *PendingRequest) complete(msg *message.Message, err error) {
	p.msg = msg
	p.err = err
	close(p.done)
}
