package evdispatch

// ResultCallback is invoked once a moment's binding list has been fully
// delivered, with the OR of every handled flag observed during delivery.
type ResultCallback func(evt *EventData, handled bool, arg any)

// Event is a named notifier owned by exactly one Dispatcher for its whole
// lifetime. Events are created by a Dispatcher and never destroyed
// individually; they live until the Dispatcher is destroyed.
type Event struct {
	name     string
	foldName string
	source   any
	disp     *Dispatcher
	bindings bindingList
}

// GetName returns the event's name with its original casing preserved.
func (e *Event) GetName() string {
	return e.name
}

// GetSource returns the source of the event's owning dispatcher.
func (e *Event) GetSource() any {
	return e.source
}

// Bind registers cb (with arg) on e. Rebinding the same callback is a no-op
// that preserves its original position in the list.
func (e *Event) Bind(cb EventCallback, arg any) {
	e.bindings.bind(cb, arg, e.disp.running)
}

// Unbind removes cb from e. Unbinding a callback that was never bound is a
// silent no-op.
func (e *Event) Unbind(cb EventCallback) {
	e.bindings.unbind(cb, e.disp.running)
}

// Trigger enqueues a moment delivering payload to every current binding of
// e, invoking resultCB (if non-nil) once delivery completes with the OR of
// every handled flag observed. If e's dispatcher is not already draining,
// Trigger drains it before returning. Returns ErrNoMemory if the moment
// could not be allocated; in that case nothing was queued or invoked.
func (e *Event) Trigger(payload any, resultCB ResultCallback, resultArg any) error {
	return e.disp.trigger(e, payload, resultCB, resultArg)
}

// TriggerPrepared consumes a TriggerData obtained from PrepareTrigger to
// enqueue a moment without allocating. It cannot fail. Ownership of td
// transfers to the dispatcher; the caller must not use or unprepare it
// afterward.
func (e *Event) TriggerPrepared(payload any, resultCB ResultCallback, resultArg any, td *TriggerData) {
	e.disp.triggerPrepared(e, payload, resultCB, resultArg, td)
}

// foldEventName lower-cases the ASCII letters of name and leaves every other
// byte unchanged.
func foldEventName(name string) string {
	b := []byte(name)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
