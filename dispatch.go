package ircbot

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/inconshreveable/log15"
)

// DispatchMode selects how listeners are run.
type DispatchMode string

const (
	// DispatchSync runs every listener on the goroutine that dispatches the
	// event, which is the connection's reader for server events. Listeners
	// must not wait for other events, that would block the reader.
	DispatchSync DispatchMode = "sync"

	// DispatchParallel gives each listener its own goroutine and queue. A
	// listener still gets events in order, but listeners run independently of
	// each other and of the reader.
	DispatchParallel DispatchMode = "parallel"
)

// A ListenerID identifies a listener added to a client.
type ListenerID uint64

// A Listener is a function that receives every event. A returned error or a
// panic is turned into a listener.exception event.
type Listener func(event *Event, client *Client) error

// A TemporaryListener is a Listener that can remove itself by calling done.
type TemporaryListener func(event *Event, client *Client, done func()) error

type listener struct {
	id      ListenerID
	fn      TemporaryListener
	mailbox *mailbox
	removed atomic.Bool
}

type dispatcher struct {
	client  *Client
	mode    DispatchMode
	logger  log15.Logger
	metrics *metrics

	mutex     sync.RWMutex
	nextID    ListenerID
	listeners []*listener
	waiters   map[*Waiter]struct{}

	// fanout is held while an event is put in every mailbox, so that an
	// exception raised by one listener can't overtake its cause in the others.
	fanout sync.Mutex
}

func newDispatcher(client *Client, mode DispatchMode, logger log15.Logger, metrics *metrics) *dispatcher {
	return &dispatcher{
		client:  client,
		mode:    mode,
		logger:  logger,
		metrics: metrics,
		waiters: make(map[*Waiter]struct{}),
	}
}

func (d *dispatcher) add(fn TemporaryListener) ListenerID {
	d.mutex.Lock()
	d.nextID++
	l := &listener{id: d.nextID, fn: fn}
	if d.mode == DispatchParallel {
		l.mailbox = newMailbox()
		go d.work(l)
	}
	d.listeners = append(d.listeners, l)
	d.mutex.Unlock()

	return l.id
}

func (d *dispatcher) remove(id ListenerID) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for i, l := range d.listeners {
		if l.id == id {
			l.removed.Store(true)
			if l.mailbox != nil {
				l.mailbox.close()
			}

			d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
			return true
		}
	}

	return false
}

func (d *dispatcher) exists(id ListenerID) bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	for _, l := range d.listeners {
		if l.id == id {
			return true
		}
	}

	return false
}

// dispatch delivers the event to the waiters and the listeners.
func (d *dispatcher) dispatch(event *Event) {
	d.metrics.eventsDispatched.Inc()

	d.mutex.RLock()
	listeners := append(make([]*listener, 0, len(d.listeners)), d.listeners...)
	for waiter := range d.waiters {
		if waiter.matches(event) {
			waiter.mailbox.push(event)
		}
	}
	d.mutex.RUnlock()

	if d.mode == DispatchParallel {
		d.fanout.Lock()
		for _, l := range listeners {
			l.mailbox.push(event)
		}
		d.fanout.Unlock()

		return
	}

	var exceptions []*Event
	for _, l := range listeners {
		if exception := d.invoke(l, event); exception != nil {
			exceptions = append(exceptions, exception)
		}
	}

	for _, exception := range exceptions {
		d.dispatch(exception)
	}
}

// work runs a listener's queue in parallel mode.
func (d *dispatcher) work(l *listener) {
	for {
		event, err := l.mailbox.pop(context.Background())
		if err != nil {
			return
		}

		if exception := d.invoke(l, event); exception != nil {
			d.dispatch(exception)
		}
	}
}

// invoke runs a listener, and returns the exception event to dispatch if it
// failed. Failures on exception events are only logged.
func (d *dispatcher) invoke(l *listener, event *Event) *Event {
	if l.removed.Load() {
		return nil
	}

	err := d.call(l, event)
	if err == nil {
		return nil
	}

	d.metrics.listenerFailures.Inc()

	if event.name == "listener.exception" {
		d.logger.Error("listener failed on an exception event", "listener", l.id, "err", err)
		return nil
	}

	d.logger.Debug("listener failed", "listener", l.id, "event", event.name, "err", err)

	return newExceptionEvent(l.id, event, err)
}

func (d *dispatcher) call(l *listener, event *Event) (err error) {
	defer func() {
		if value := recover(); value != nil {
			err = &ListenerPanic{Value: value}
		}
	}()

	return l.fn(event, d.client, func() { d.remove(l.id) })
}

func (d *dispatcher) addWaiter(waiter *Waiter) {
	d.mutex.Lock()
	d.waiters[waiter] = struct{}{}
	d.mutex.Unlock()
}

func (d *dispatcher) removeWaiter(waiter *Waiter) {
	d.mutex.Lock()
	delete(d.waiters, waiter)
	d.mutex.Unlock()
}

// close stops the listener goroutines and the waiters.
func (d *dispatcher) close() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for _, l := range d.listeners {
		if l.mailbox != nil {
			l.mailbox.close()
		}
	}
	for waiter := range d.waiters {
		waiter.mailbox.close()
	}
}

// A Waiter receives copies of matching events until it's closed. It doesn't
// take events away from the listeners.
type Waiter struct {
	dispatcher *dispatcher
	names      map[string]bool
	mailbox    *mailbox
	closeOnce  sync.Once
}

// Next waits for the next matching event. If the context ends first, it
// returns nil and the context's error.
func (waiter *Waiter) Next(ctx context.Context) (*Event, error) {
	event, err := waiter.mailbox.pop(ctx)
	if err == errMailboxClosed {
		return nil, ErrWaiterClosed
	}

	return event, err
}

// Close stops the waiter from receiving more events.
func (waiter *Waiter) Close() {
	waiter.closeOnce.Do(func() {
		waiter.dispatcher.removeWaiter(waiter)
		waiter.mailbox.close()
	})
}

// matches checks the event's name and kind.
func (waiter *Waiter) matches(event *Event) bool {
	return len(waiter.names) == 0 || waiter.names[event.name] || waiter.names[event.kind]
}
