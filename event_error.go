package ircbot

import "fmt"

// newErrorEvent makes an event of kind `error` and verb `code` carrying the
// error.
func newErrorEvent(code string, err error) *Event {
	event := NewEvent("error", code, err.Error())
	event.err = err

	return event
}

// newExceptionEvent wraps a listener's failure on an event.
func newExceptionEvent(id ListenerID, original *Event, err error) *Event {
	event := NewEvent("listener", "exception", fmt.Sprintf("listener %d failed on %s: %s", id, original.name, err))
	event.err = err
	event.listener = id
	event.original = original
	event.client = original.client

	return event
}

// ListenerPanic is the error of a listener.exception event caused by a
// panicking listener.
type ListenerPanic struct {
	Value interface{}
}

func (err *ListenerPanic) Error() string {
	return fmt.Sprintf("listener panicked: %v", err.Value)
}
