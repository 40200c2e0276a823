// Package monitor exports camera link statistics as prometheus metrics.
package monitor

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/camlink/pkg/cam/comm"
)

// Namespace prefixes all metric names.
const Namespace = "camlink"

// Metrics implements comm.Observer and comm.StateNotifier.
type Metrics struct {
	UnitsReceived   *prometheus.CounterVec
	BytesReceived   prometheus.Counter
	FramesRejected  *prometheus.CounterVec
	Commands        *prometheus.CounterVec
	CommandAttempts prometheus.Histogram
	LinkConnected   prometheus.Gauge
}

// NewMetrics creates Metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UnitsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "units_received_total",
			Help:      "Units received from the camera module.",
		}, []string{"kind"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "unit_bytes_received_total",
			Help:      "Payload bytes of received units.",
		}),
		FramesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_rejected_total",
			Help:      "Binary frames rejected by the reader.",
		}, []string{"reason"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commands_total",
			Help:      "Completed commands.",
		}, []string{"command", "result"}),
		CommandAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "command_attempts",
			Help:      "Attempts used per command.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
		LinkConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "link_connected",
			Help:      "1 if a remote controller is connected to the camera module.",
		}),
	}
	reg.MustRegister(
		m.UnitsReceived,
		m.BytesReceived,
		m.FramesRejected,
		m.Commands,
		m.CommandAttempts,
		m.LinkConnected,
	)
	return m
}

// UnitReceived implements comm.Observer.
func (m *Metrics) UnitReceived(u comm.Unit) {
	m.UnitsReceived.WithLabelValues(u.Kind.String()).Inc()
	m.BytesReceived.Add(float64(len(u.Data)))
}

// FrameRejected implements comm.Observer.
func (m *Metrics) FrameRejected(err error) {
	m.FramesRejected.WithLabelValues(RejectReason(err)).Inc()
}

// CommandCompleted implements comm.Observer.
func (m *Metrics) CommandCompleted(name string, attempts int, err error) {
	m.Commands.WithLabelValues(name, CommandResult(err)).Inc()
	m.CommandAttempts.Observe(float64(attempts))
}

// StateChanged implements comm.StateNotifier.
func (m *Metrics) StateChanged(_ context.Context, connected bool) {
	if connected {
		m.LinkConnected.Set(1)
	} else {
		m.LinkConnected.Set(0)
	}
}

// RejectReason is the label value of a frame error.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, comm.ErrStartByteMismatch):
		return "start_byte"
	case errors.Is(err, comm.ErrEndByteMismatch):
		return "end_byte"
	case errors.Is(err, comm.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, comm.ErrLengthOverflow):
		return "length_overflow"
	case errors.Is(err, comm.ErrIncompleteFrame):
		return "incomplete"
	}
	return "other"
}

// CommandResult is the label value of a command result.
func CommandResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, comm.ErrExhausted):
		return "exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}
