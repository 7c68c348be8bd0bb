package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPC metrics
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_rpc_requests_total",
			Help: "Total gRPC requests",
		},
		[]string{"method", "code"}, // code 为 gRPC status code
	)

	RPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_rpc_request_duration_seconds",
			Help:    "gRPC request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method"},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_users_registered_total",
			Help: "Total users registered",
		},
	)

	LoginFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_login_failures_total",
			Help: "Total failed logins",
		},
		[]string{"reason"}, // credentials, limited
	)

	ChannelsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_channels_created_total",
			Help: "Total channels created",
		},
	)

	MembersJoined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_members_joined_total",
			Help: "Total memberships created on visit",
		},
	)

	MessagesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_stored_total",
			Help: "Total messages stored",
		},
		[]string{"start_of_day"},
	)
)
