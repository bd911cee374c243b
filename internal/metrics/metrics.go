package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wecall_active_connections",
		Help: "Number of active signalling websocket connections",
	})

	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wecall_connections_total",
		Help: "Total number of signalling websocket connections",
	})

	DisconnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wecall_disconnections_total",
		Help: "Total number of signalling websocket disconnections",
	})

	BoundIdentities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wecall_bound_identities",
		Help: "Number of identities currently present in the registry",
	})

	AuthFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wecall_auth_failures_total",
		Help: "Total number of connections whose identity token failed verification",
	})

	RelayedMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wecall_relayed_messages_total",
		Help: "Total number of messages forwarded by the relay",
	}, []string{"event"})

	DroppedMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wecall_dropped_messages_total",
		Help: "Total number of messages dropped instead of forwarded",
	}, []string{"reason"}) // "target_offline" | "unbound_sender" | "invalid" | "write_failed"

	CallInvitesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wecall_call_invites_total",
		Help: "Total number of call invitations relayed",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wecall_active_rooms",
		Help: "Number of call sessions with at least one joined participant",
	})

	StartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wecall_start_time_seconds",
		Help: "Server start time in Unix seconds",
	})
)

// Drop reasons used with DroppedMessagesTotal.
const (
	DropTargetOffline = "target_offline"
	DropUnboundSender = "unbound_sender"
	DropInvalid       = "invalid"
	DropWriteFailed   = "write_failed"
)
