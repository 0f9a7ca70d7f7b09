// Package bridge adapts evdispatch deliveries to CloudEvents. It
// demonstrates that the dispatcher's plain callback contract is enough to
// host an observer-pattern adapter without the core needing to know about
// CloudEvents at all: a BridgeObserver is just another bound callback.
package bridge

import (
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/GoCodeAlone/evdispatch"
)

// Sink receives one CloudEvent per delivered moment. Implementations
// typically forward to a log sink or an audit trail.
type Sink func(cloudevents.Event)

// BridgeObserver binds itself to one or more events on a dispatcher and
// turns every delivery into a CloudEvent handed to Sink. It never sets
// Handled itself, so it never influences the OR'd result of the moment it
// observes.
type BridgeObserver struct {
	source string
	sink   Sink

	mu    sync.Mutex
	count int
}

// NewBridgeObserver creates an observer that tags every emitted CloudEvent
// with source and forwards it to sink.
func NewBridgeObserver(source string, sink Sink) *BridgeObserver {
	return &BridgeObserver{source: source, sink: sink}
}

// Attach binds the observer's callback to evt, so every future delivery of
// evt produces one CloudEvent. Bindings are identified by the callback's
// code pointer, which every Attach closure shares, so only the first Attach
// on a given event takes effect: a later one, by this or any other
// BridgeObserver, is a no-op.
func (b *BridgeObserver) Attach(evt *evdispatch.Event, eventType string) {
	evt.Bind(func(ed *evdispatch.EventData, arg any) {
		b.emit(eventType, ed)
	}, nil)
}

func (b *BridgeObserver) emit(eventType string, ed *evdispatch.EventData) {
	b.mu.Lock()
	b.count++
	n := b.count
	b.mu.Unlock()

	ce := cloudevents.NewEvent()
	ce.SetID(uuid.NewString())
	ce.SetSource(b.source)
	ce.SetType(eventType)
	ce.SetTime(time.Now())
	ce.SetSpecVersion(cloudevents.VersionV1)
	ce.SetExtension("dispatchername", ed.Name)
	ce.SetExtension("sequence", n)

	payload := map[string]any{
		"event":   ed.Name,
		"payload": ed.Payload,
		"handled": ed.Handled,
	}
	_ = ce.SetData(cloudevents.ApplicationJSON, payload)

	if b.sink != nil {
		b.sink(ce)
	}
}
