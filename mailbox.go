package ircbot

import (
	"context"
	"errors"
	"sync"
)

var errMailboxClosed = errors.New("irc: mailbox closed")

// A mailbox is an unbounded FIFO queue of events with one reader.
type mailbox struct {
	mutex  sync.Mutex
	queue  []*Event
	closed bool
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) push(event *Event) {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return
	}
	m.queue = append(m.queue, event)
	m.mutex.Unlock()

	m.notify()
}

// pop waits for the next event. Events queued before the mailbox is closed are
// dropped.
func (m *mailbox) pop(ctx context.Context) (*Event, error) {
	for {
		m.mutex.Lock()
		if m.closed {
			m.mutex.Unlock()
			return nil, errMailboxClosed
		}
		if len(m.queue) > 0 {
			event := m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			m.mutex.Unlock()

			return event, nil
		}
		m.mutex.Unlock()

		select {
		case <-m.signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (m *mailbox) close() {
	m.mutex.Lock()
	m.closed = true
	m.queue = nil
	m.mutex.Unlock()

	m.notify()
}

func (m *mailbox) notify() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}
