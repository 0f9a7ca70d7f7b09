// Package evdispatch implements a reentrancy-safe, breadth-first,
// synchronous publish/subscribe event dispatcher. A Dispatcher owns a set
// of named Events; each Event holds an ordered list of bindings
// (callback + user argument); Trigger delivers a payload to every current
// binding and reports the OR of their "handled" flags to an optional
// result callback.
//
// The dispatcher is single-threaded: all operations on a Dispatcher and
// its Events must happen on one goroutine. Reentrancy — a callback
// triggering further events, binding, unbinding, or destroying its own
// dispatcher — is the only concurrency concern, and is resolved with a
// running flag plus pending-add/pending-remove bookkeeping on bindings,
// never with locks.
package evdispatch

import "github.com/GoCodeAlone/evdispatch/internal/pool"

// Dispatcher owns a set of named events, a FIFO queue of pending moments,
// and coordinates reference-counted deferred destruction so a callback may
// safely destroy its own dispatcher mid-delivery.
type Dispatcher struct {
	source any
	events map[string]*Event
	queue  momentQueue
	alloc  pool.Allocator
	logger Logger
	cfg    Config

	running  bool
	refcount int
	released bool
}

// Option configures a Dispatcher at creation time.
type Option func(*Dispatcher)

// WithLogger installs a Logger for dispatcher diagnostics. Defaults to a
// no-op logger.
func WithLogger(l Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithAllocator installs the Allocator used to back every moment's scratch
// pool. Defaults to a pool.CountingAllocator; tests install a
// pool.FailingAllocator to exercise NoMemory paths.
func WithAllocator(a pool.Allocator) Option {
	return func(d *Dispatcher) { d.alloc = a }
}

// WithConfig installs tuning options (queue depth cap, pool block size
// hint). Defaults to DefaultConfig().
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) { d.cfg = cfg }
}

// NewDispatcher creates a Dispatcher for the given opaque source. The
// dispatcher starts with a reference count of one, held by the caller;
// Destroy releases it.
func NewDispatcher(source any, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		source:   source,
		events:   make(map[string]*Event),
		alloc:    pool.NewCountingAllocator(),
		logger:   noopLogger{},
		cfg:      DefaultConfig(),
		refcount: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Source returns the opaque source handle the dispatcher was created with.
func (d *Dispatcher) Source() any {
	return d.source
}

// CreateEvent registers a new named event with d. Event names are matched
// case-insensitively (ASCII folding); the original casing is preserved for
// Event.GetName. An empty name fails with ErrInvalidArg; a name colliding
// with an existing event (after folding) fails with ErrInvalidState.
func (d *Dispatcher) CreateEvent(name string) (*Event, error) {
	if name == "" {
		return nil, newError(ErrInvalidArg, "event name must not be empty")
	}
	fold := foldEventName(name)
	if _, exists := d.events[fold]; exists {
		return nil, newError(ErrInvalidState, "event "+name+" already exists")
	}
	e := &Event{name: name, foldName: fold, source: d.source, disp: d}
	d.events[fold] = e
	d.logger.Debug("event created", "name", name)
	return e, nil
}

// GetEvent looks up an event by name (ASCII case-insensitive). Returns nil
// if no such event exists.
func (d *Dispatcher) GetEvent(name string) *Event {
	return d.events[foldEventName(name)]
}

// Destroy releases the caller's reference to d. Actual teardown — unbinding
// every callback, freeing every event, and discarding any queued but
// unprocessed moments — happens only once the reference count reaches
// zero. Because drain holds its own reference for its duration, a callback
// may safely call Destroy on its own dispatcher: teardown is deferred until
// the outermost drain returns.
func (d *Dispatcher) Destroy() {
	if d.released {
		return
	}
	d.released = true
	d.decRef()
}

func (d *Dispatcher) decRef() {
	d.refcount--
	if d.refcount <= 0 {
		d.teardown()
	}
}

func (d *Dispatcher) teardown() {
	for !d.queue.empty() {
		m := d.queue.popFront()
		m.pool.Destroy()
	}
	for _, e := range d.events {
		e.bindings = bindingList{}
	}
	d.events = nil
	d.logger.Debug("dispatcher torn down", "source", d.source)
}

// trigger is the allocating path behind Event.Trigger.
func (d *Dispatcher) trigger(event *Event, payload any, resultCB ResultCallback, resultArg any) error {
	if d.cfg.MaxQueueDepth > 0 && len(d.queue.items) >= d.cfg.MaxQueueDepth && d.cfg.FailFast {
		return newError(ErrInvalidState, "trigger queue is full")
	}
	m, err := d.newMoment(event, payload, resultCB, resultArg)
	if err != nil {
		return err
	}
	d.enqueue(m)
	return nil
}

// triggerPrepared is the non-allocating path behind Event.TriggerPrepared.
func (d *Dispatcher) triggerPrepared(event *Event, payload any, resultCB ResultCallback, resultArg any, td *TriggerData) {
	ed := td.data
	ed.Event = event
	ed.Name = event.name
	ed.Source = event.source
	ed.Payload = payload
	ed.Handled = false

	m := &moment{
		event:     event,
		payload:   payload,
		resultCB:  resultCB,
		resultArg: resultArg,
		pool:      td.pool,
		data:      ed,
	}
	d.enqueue(m)
}

func (d *Dispatcher) newMoment(event *Event, payload any, resultCB ResultCallback, resultArg any) (*moment, error) {
	p, err := pool.Create(d.alloc)
	if err != nil {
		return nil, newError(ErrNoMemory, "allocating moment pool")
	}
	if _, err := p.Malloc(1); err != nil {
		p.Destroy()
		return nil, newError(ErrNoMemory, "allocating event data")
	}
	ed := &EventData{
		Source:  event.source,
		Name:    event.name,
		Event:   event,
		Payload: payload,
		pool:    p,
	}
	return &moment{
		event:     event,
		payload:   payload,
		resultCB:  resultCB,
		resultArg: resultArg,
		pool:      p,
		data:      ed,
	}, nil
}

// enqueue appends m to the dispatcher's FIFO and, if the dispatcher is not
// already draining, drains it before returning.
func (d *Dispatcher) enqueue(m *moment) {
	d.queue.pushBack(m)
	if !d.running {
		d.drain()
	}
}

// drain is the breadth-first delivery loop: pop one moment at a time, walk
// its event's binding list skipping pending-add/pending-remove nodes,
// invoke each live binding, reconcile the list, report the result, and
// release the moment's pool — all before considering the next moment, so
// nested triggers on this dispatcher never recurse into drain.
func (d *Dispatcher) drain() {
	d.running = true
	d.refcount++ // self-reference for the drain scope

	for !d.queue.empty() {
		m := d.queue.popFront()
		ed := m.data

		for b := m.event.bindings.head; b != nil; b = b.next {
			if b.pendingAdd || b.pendingRemove {
				continue
			}
			ed.Handled = m.handled
			b.cb(ed, b.arg)
			m.handled = m.handled || ed.Handled
		}
		ed.Handled = m.handled

		m.event.bindings.reconcile()

		if m.resultCB != nil {
			m.resultCB(ed, m.handled, m.resultArg)
		}

		m.pool.Destroy()
	}

	d.running = false
	d.decRef()
}

// PrepareTrigger pre-allocates the scratch resources one moment needs so a
// later call to Event.TriggerPrepared cannot fail from resource exhaustion.
// The returned TriggerData must be consumed by exactly one of
// Event.TriggerPrepared or Dispatcher.UnprepareTrigger.
func (d *Dispatcher) PrepareTrigger() (*TriggerData, error) {
	p, err := pool.Create(d.alloc)
	if err != nil {
		return nil, newError(ErrNoMemory, "allocating prepared moment pool")
	}
	if _, err := p.Malloc(1); err != nil {
		p.Destroy()
		return nil, newError(ErrNoMemory, "allocating prepared event data")
	}
	return &TriggerData{
		pool: p,
		data: &EventData{pool: p},
	}, nil
}

// UnprepareTrigger releases a TriggerData that was prepared but never
// consumed by Event.TriggerPrepared.
func (d *Dispatcher) UnprepareTrigger(td *TriggerData) {
	if td == nil {
		return
	}
	td.pool.Destroy()
}
