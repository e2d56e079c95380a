package ircbot

import (
	"github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	linesRead        prometheus.Counter
	pingsSent        prometheus.Counter
	eventsDispatched prometheus.Counter
	listenerFailures prometheus.Counter
}

// newMetrics creates the client's counters, labeled with the client ID so that
// more clients can share a registry.
func newMetrics(registerer prometheus.Registerer, clientID string, logger log15.Logger) *metrics {
	labels := prometheus.Labels{"client": clientID}

	m := &metrics{
		linesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ircbot",
			Name:        "lines_read_total",
			Help:        "Number of lines read from the server.",
			ConstLabels: labels,
		}),
		pingsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ircbot",
			Name:        "idle_pings_sent_total",
			Help:        "Number of PINGs sent because the connection was idle.",
			ConstLabels: labels,
		}),
		eventsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ircbot",
			Name:        "events_dispatched_total",
			Help:        "Number of events passed to the listeners.",
			ConstLabels: labels,
		}),
		listenerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ircbot",
			Name:        "listener_failures_total",
			Help:        "Number of errors and panics from listeners.",
			ConstLabels: labels,
		}),
	}

	if registerer != nil {
		for _, collector := range []prometheus.Collector{m.linesRead, m.pingsSent, m.eventsDispatched, m.listenerFailures} {
			if err := registerer.Register(collector); err != nil {
				logger.Warn("could not register metric", "err", err)
			}
		}
	}

	return m
}
