package relayer

import "github.com/prometheus/client_golang/prometheus"

var (
	relayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayer",
			Name:      "requests_total",
			Help:      "Relay requests by final status.",
		},
		[]string{"status"},
	)
	relayFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayer",
			Name:      "failures_total",
			Help:      "Failed relay requests by error code.",
		},
		[]string{"code"},
	)
	quotedFeeBPS = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relayer",
			Name:      "quoted_fee_bps",
			Help:      "Fees quoted, in basis points.",
			Buckets:   []float64{10, 25, 50, 100, 200, 500, 1000, 5000},
		},
		[]string{"chain"},
	)
)

func init() {
	prometheus.MustRegister(relayRequestsTotal, relayFailuresTotal, quotedFeeBPS)
}
