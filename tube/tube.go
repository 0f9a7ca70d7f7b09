// Package tube is a small UDP transport: a socket wrapper that reads
// datagrams and dispatches them as events rather than calling a fixed
// handler directly. It is a *user* of the dispatcher pattern, not part of
// the dispatcher core.
package tube

import (
	"context"
	"net"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/evdispatch"
)

// Event names a Tube fires on its private dispatcher.
const (
	EventData = "data"
	EventSend = "send"
)

// State is a coarse connection state machine for a Tube.
type State int

const (
	StateUnknown State = iota
	StateStart
	StateOpen
	StateRunning
	StateResumed
	StateClosed
)

// Tube wraps one UDP socket and exposes it as an event source: every
// datagram received fires EventData with the packet bytes as payload, and
// Send fires EventSend so bound observers can audit outbound traffic
// without intercepting the write path itself.
type Tube struct {
	ID    string
	State State

	conn *net.UDPConn
	disp *evdispatch.Dispatcher

	dataEvt *evdispatch.Event
	sendEvt *evdispatch.Event
}

// DataPayload is the payload delivered with EventData.
type DataPayload struct {
	From *net.UDPAddr
	Body []byte
}

// SendPayload is the payload delivered with EventSend, after the write has
// already happened — it is for observation, not interception.
type SendPayload struct {
	To   *net.UDPAddr
	Body []byte
}

// New creates a Tube bound to conn, wiring a fresh Dispatcher with the
// "data" and "send" events ready for binding.
func New(conn *net.UDPConn, opts ...evdispatch.Option) (*Tube, error) {
	disp, err := evdispatch.NewDispatcher(conn, opts...)
	if err != nil {
		return nil, err
	}
	dataEvt, err := disp.CreateEvent(EventData)
	if err != nil {
		return nil, err
	}
	sendEvt, err := disp.CreateEvent(EventSend)
	if err != nil {
		return nil, err
	}
	return &Tube{
		ID:      uuid.NewString(),
		State:   StateUnknown,
		conn:    conn,
		disp:    disp,
		dataEvt: dataEvt,
		sendEvt: sendEvt,
	}, nil
}

// DataEvent returns the event fired for every received datagram, so
// callers can Bind/Unbind handlers on it.
func (t *Tube) DataEvent() *evdispatch.Event { return t.dataEvt }

// SendEvent returns the event fired after every successful Send.
func (t *Tube) SendEvent() *evdispatch.Event { return t.sendEvt }

// Send writes body to addr and fires EventSend on success.
func (t *Tube) Send(addr *net.UDPAddr, body []byte) error {
	if _, err := t.conn.WriteToUDP(body, addr); err != nil {
		return err
	}
	return t.sendEvt.Trigger(&SendPayload{To: addr, Body: body}, nil, nil)
}

// Serve reads datagrams until ctx is cancelled or the socket errors,
// triggering EventData for each one. It runs on the caller's goroutine —
// the dispatcher it drives is single-threaded, so Serve must not be called
// concurrently with Bind/Unbind/Send on the same Tube from another
// goroutine.
func (t *Tube) Serve(ctx context.Context) error {
	buf := make([]byte, 64*1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		body := make([]byte, n)
		copy(body, buf[:n])

		if err := t.dataEvt.Trigger(&DataPayload{From: from, Body: body}, nil, nil); err != nil {
			return err
		}
	}
}

// Close releases the tube's dispatcher and underlying socket.
func (t *Tube) Close() error {
	t.disp.Destroy()
	return t.conn.Close()
}
