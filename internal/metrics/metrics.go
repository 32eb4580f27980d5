package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hedger"

var (
	// GatewayRequests counts gateway requests by endpoint and outcome.
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Total gateway requests, by endpoint and status class.",
	}, []string{"endpoint", "status"})

	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_seconds",
		Help:      "Gateway request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// RateLimitWaits counts requests that had to wait for a token.
	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_waits_total",
		Help:      "Total requests delayed by the gateway request bucket.",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_seconds",
		Help:      "Duration of one business cycle in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// Cycles counts business cycles by result (ok, no_trade, skipped, error).
	Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Total business cycles, by result.",
	}, []string{"result"})

	RankedPairs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ranked_pairs",
		Help:      "Number of pairs ranked in the last cycle.",
	})

	TopRENTD = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "top_rentd",
		Help:      "RENTD of the best ranked pair in the last cycle.",
	})

	SMA = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sma_dollars",
		Help:      "Special memorandum account value from net liquidation.",
	})

	// RiskChecks counts risk evaluations by outcome (pass, fail).
	RiskChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "risk_checks_total",
		Help:      "Total pair risk evaluations, by outcome.",
	}, []string{"outcome"})

	// Orders counts order actions by action (placed, dry_run, cancelled, skipped).
	Orders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_total",
		Help:      "Total order actions, by action.",
	}, []string{"action"})

	ActiveOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_orders",
		Help:      "Active orders seen at the last gate check.",
	})

	UniverseSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "universe_instruments",
		Help:      "Quoted instruments in the universe, by kind.",
	}, []string{"kind"})

	StreamUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_updates_total",
		Help:      "Total market data updates received over the websocket.",
	})

	// RecordsWritten counts cycle rows written to the database by table.
	RecordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_written_total",
		Help:      "Total rows written, by table.",
	}, []string{"table"})

	RecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_dropped_total",
		Help:      "Total cycle records dropped because the writer buffer was full.",
	})
)
