package evdispatch

import "errors"

// Error codes, mirroring the three kinds the dispatcher can raise.
var (
	// ErrNoMemory indicates the allocator could not satisfy an allocation
	// for a trigger or a prepared trigger; the operation left no partial
	// state.
	ErrNoMemory = errors.New("evdispatch: no memory")

	// ErrInvalidArg indicates an invalid argument, such as an empty event name.
	ErrInvalidArg = errors.New("evdispatch: invalid argument")

	// ErrInvalidState indicates the dispatcher is in a state that makes the
	// requested operation impossible, such as creating a duplicate event name.
	ErrInvalidState = errors.New("evdispatch: invalid state")
)

// DispatchError wraps one of the sentinel errors above with a human-readable
// message. errors.Is(err, ErrNoMemory) (etc.) works against values returned
// by this package.
type DispatchError struct {
	Code    error
	Message string
}

func (e *DispatchError) Error() string {
	if e.Message == "" {
		return e.Code.Error()
	}
	return e.Code.Error() + ": " + e.Message
}

func (e *DispatchError) Unwrap() error {
	return e.Code
}

func newError(code error, message string) *DispatchError {
	return &DispatchError{Code: code, Message: message}
}
