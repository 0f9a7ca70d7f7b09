package evdispatch

import "github.com/GoCodeAlone/evdispatch/internal/pool"

// EventData is the ephemeral record delivered to every callback and to the
// result callback for one moment. Its Handled field is monotonic within a
// moment: once a callback sets it true, it stays true for the remainder of
// that moment's delivery.
type EventData struct {
	Source  any
	Name    string
	Event   *Event
	Payload any
	Handled bool

	pool *pool.Pool
}

// Pool exposes the moment's scratch arena to callbacks that need scoped
// allocations of their own.
func (d *EventData) Pool() *pool.Pool {
	return d.pool
}

// TriggerData is a pre-allocated, not-yet-consumed trigger obtained from
// Dispatcher.PrepareTrigger. Passing it to Event.TriggerPrepared transfers
// ownership to the dispatcher; passing it to Dispatcher.UnprepareTrigger
// releases it unused. A TriggerData must be consumed exactly once, by
// exactly one of those two calls.
type TriggerData struct {
	pool *pool.Pool
	data *EventData
}

// moment is one queued triggering: a target event, a payload, a result
// callback, and the scratch pool backing its EventData.
type moment struct {
	event     *Event
	payload   any
	resultCB  ResultCallback
	resultArg any
	handled   bool
	pool      *pool.Pool
	data      *EventData
}

// momentQueue is a per-dispatcher FIFO of pending moments.
type momentQueue struct {
	items []*moment
}

func (q *momentQueue) pushBack(m *moment) {
	q.items = append(q.items, m)
}

func (q *momentQueue) popFront() *moment {
	if len(q.items) == 0 {
		return nil
	}
	m := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return m
}

func (q *momentQueue) empty() bool {
	return len(q.items) == 0
}
