// Package metrics adapts the room actor's narrow Metrics interface onto
// Prometheus collectors, the same client_golang stack the teacher pulls
// in for its own operational surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics implements room.Metrics and exposes the underlying collectors
// for registration against a prometheus.Registerer.
type Metrics struct {
	roomsActive      prometheus.Gauge
	sessionsActive   prometheus.Gauge
	messagesTotal    *prometheus.CounterVec
	commandsRejected *prometheus.CounterVec
}

// New constructs the collector set. Call Register to wire it into a
// registry before serving /metrics.
func New() *Metrics {
	return &Metrics{
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trivia_rooms_active",
			Help: "Number of room actors currently running.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trivia_sessions_active",
			Help: "Number of attached websocket sessions across all rooms.",
		}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_messages_total",
			Help: "Inbound frames processed by room actors.",
		}, []string{"direction"}),
		commandsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_commands_rejected_total",
			Help: "Commands rejected by room actors, labeled by error code.",
		}, []string{"code"}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.roomsActive, m.sessionsActive, m.messagesTotal, m.commandsRejected} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// SessionAttached implements room.Metrics.
func (m *Metrics) SessionAttached() { m.sessionsActive.Inc() }

// SessionDetached implements room.Metrics.
func (m *Metrics) SessionDetached() { m.sessionsActive.Dec() }

// MessageProcessed implements room.Metrics.
func (m *Metrics) MessageProcessed() { m.messagesTotal.WithLabelValues("inbound").Inc() }

// CommandRejected implements room.Metrics.
func (m *Metrics) CommandRejected(code string) { m.commandsRejected.WithLabelValues(code).Inc() }

// RoomCreated implements room.Metrics; it records a new room actor
// starting up and is reported by the directory, not the actor.
func (m *Metrics) RoomCreated() { m.roomsActive.Inc() }

// RoomRetired implements room.Metrics; it records a room actor stopping.
func (m *Metrics) RoomRetired() { m.roomsActive.Dec() }
