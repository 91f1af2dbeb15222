package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRPCMetrics() {
	r.RPCCallsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphdelta_rpc_calls_total",
			Help: "Total number of peer RPC calls made, by method and result",
		},
		[]string{"method", "result"}, // REQUEST_VOTE|APPEND_ENTRIES|STATUS, ok|timeout|aborted|busy|error
	)

	r.RPCCallDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphdelta_rpc_call_duration_seconds",
			Help:    "Duration of a peer RPC call, from first byte sent to reply decoded",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	r.RPCInFlightCalls = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphdelta_rpc_in_flight_calls",
			Help: "Number of peer RPC calls currently awaiting a reply",
		},
	)
}
