package evdispatch

import "reflect"

// EventCallback is invoked once per binding when the event it is bound to
// is delivered. arg is whatever opaque value was passed to Bind.
type EventCallback func(evt *EventData, arg any)

// callbackID gives a bound callback an identity for Bind/Unbind matching.
// Go function values are not comparable, so identity is taken from the
// function's code pointer via reflection — two EventCallback values bind to
// the same slot iff they were obtained from the same function (same
// source-level func, closures included), the same notion of identity a raw
// function pointer would give.
func callbackID(cb EventCallback) uintptr {
	return reflect.ValueOf(cb).Pointer()
}

// bindingNode is one entry in an event's binding list.
type bindingNode struct {
	id            uintptr
	cb            EventCallback
	arg           any
	pendingAdd    bool
	pendingRemove bool
	next          *bindingNode
}

// bindingList is the ordered, singly linked sequence of bindings for one
// event. It is only ever touched while its owning dispatcher is not
// concurrently draining from another goroutine — see the package doc for
// the single-threaded contract.
type bindingList struct {
	head *bindingNode
	tail *bindingNode
}

// bind appends cb/arg as a new binding, or reactivates an existing
// pending-remove binding in place. running reports whether the owning
// dispatcher is currently draining, which determines whether a freshly
// appended node starts life pending-add.
func (l *bindingList) bind(cb EventCallback, arg any, running bool) {
	id := callbackID(cb)
	for n := l.head; n != nil; n = n.next {
		if n.id != id {
			continue
		}
		if n.pendingRemove {
			n.pendingRemove = false
			n.arg = arg
			return
		}
		// Duplicate, not pending-remove: no-op, position preserved,
		// argument NOT overwritten.
		return
	}

	node := &bindingNode{id: id, cb: cb, arg: arg, pendingAdd: running}
	if l.tail == nil {
		l.head = node
		l.tail = node
		return
	}
	l.tail.next = node
	l.tail = node
}

// unbind removes cb's binding. Unknown callbacks are a silent no-op; during
// a drain the node is merely marked pending-remove and left linked, so the
// in-flight traversal can step past it safely; the traversal skips it from
// then on and reconcile unlinks it.
func (l *bindingList) unbind(cb EventCallback, running bool) {
	id := callbackID(cb)
	var prev *bindingNode
	for n := l.head; n != nil; n = n.next {
		if n.id != id {
			prev = n
			continue
		}
		if running {
			n.pendingRemove = true
			return
		}
		l.unlink(prev, n)
		return
	}
}

func (l *bindingList) unlink(prev, n *bindingNode) {
	if prev == nil {
		l.head = n.next
	} else {
		prev.next = n.next
	}
	if n == l.tail {
		l.tail = prev
	}
}

// reconcile applies end-of-moment bookkeeping: unlink every pending-remove
// node, then clear every pending-add flag so the next round sees a clean
// list.
func (l *bindingList) reconcile() {
	var prev *bindingNode
	n := l.head
	for n != nil {
		next := n.next
		if n.pendingRemove {
			l.unlink(prev, n)
			n = next
			continue
		}
		n.pendingAdd = false
		prev = n
		n = next
	}
}
