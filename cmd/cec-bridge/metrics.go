package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the bridge's Prometheus collectors.
type Metrics struct {
	PacketsDecoded  prometheus.Counter
	PollingMessages prometheus.Counter
	EventsEmitted   *prometheus.CounterVec
	KeyPresses      *prometheus.CounterVec
	SendsTotal      *prometheus.CounterVec
	QueryTimeouts   prometheus.Counter
	AdapterReady    prometheus.Gauge
}

// NewMetrics creates the bridge metrics and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		PacketsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cec",
			Subsystem: "bus",
			Name:      "packets_decoded_total",
			Help:      "Total number of traffic lines decoded into packets",
		}),
		PollingMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cec",
			Subsystem: "bus",
			Name:      "polling_messages_total",
			Help:      "Total number of header-only polling messages observed",
		}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cec",
			Subsystem: "bus",
			Name:      "events_total",
			Help:      "Total number of semantic events emitted, by event name",
		}, []string{"event"}),
		KeyPresses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cec",
			Subsystem: "remote",
			Name:      "keypresses_total",
			Help:      "Total number of completed remote keypresses, by key",
		}, []string{"key"}),
		SendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cec",
			Subsystem: "adapter",
			Name:      "sends_total",
			Help:      "Total number of outbound adapter commands, by result",
		}, []string{"status"}),
		QueryTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cec",
			Subsystem: "adapter",
			Name:      "query_timeouts_total",
			Help:      "Total number of queries that expired without a reply",
		}),
		AdapterReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cec",
			Subsystem: "adapter",
			Name:      "ready",
			Help:      "Whether the adapter process is accepting input (0 or 1)",
		}),
	}

	reg.MustRegister(
		m.PacketsDecoded,
		m.PollingMessages,
		m.EventsEmitted,
		m.KeyPresses,
		m.SendsTotal,
		m.QueryTimeouts,
		m.AdapterReady,
	)
	return m
}
