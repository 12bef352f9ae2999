package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	rpcResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_rpc_resolve_total",
			Help: "Number of Resolve calls by gRPC status code.",
		},
		[]string{"code"},
	)
	rpcResolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provisioner_rpc_resolve_duration_seconds",
			Help:    "Time taken to serve a Resolve call.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	metrics.Registry.MustRegister(rpcResolveTotal, rpcResolveDuration)
}
