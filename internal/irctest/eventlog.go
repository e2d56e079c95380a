package irctest

import (
	"sync"

	"github.com/gissleh/ircbot"
)

// An EventLog records events. Add its Listener to a client.
type EventLog struct {
	mutex  sync.Mutex
	events []*ircbot.Event
}

// First gets the first event with the name.
func (l *EventLog) First(name string) *ircbot.Event {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, e := range l.events {
		if e.Name() == name {
			return e
		}
	}

	return nil
}

// Last gets the last event with the name.
func (l *EventLog) Last(name string) *ircbot.Event {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if e.Name() == name {
			return e
		}
	}

	return nil
}

// Names lists the names of the recorded events in order.
func (l *EventLog) Names() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	names := make([]string, 0, len(l.events))
	for _, e := range l.events {
		names = append(names, e.Name())
	}

	return names
}

func (l *EventLog) Listener(event *ircbot.Event, _ *ircbot.Client) error {
	l.mutex.Lock()
	l.events = append(l.events, event)
	l.mutex.Unlock()

	return nil
}
