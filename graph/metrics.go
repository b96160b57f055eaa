package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metric collection for agent
// run monitoring in production environments.
//
// Metrics exposed (all namespaced with "agentgraph_"):
//
//  1. runs_started_total (counter): Runs begun.
//  2. runs_completed_total (counter): Runs that reached END.
//  3. runs_failed_total (counter), label kind: Runs terminated by an
//     error, partitioned by failure kind (config, routing, exhausted,
//     timeout, persistence, node).
//  4. node_latency_ms (histogram), labels node, status: Node execution
//     duration for P50/P95/P99 analysis per node.
//  5. tool_calls_total (counter), labels tool, status: Capability
//     invocations, partitioned by outcome.
//  6. run_hops (histogram): Node executions per completed run; watch
//     this to tune MaxHops.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewMetrics(registry)
//	rc := graph.RunContext[State]{Metrics: metrics, ...}
//
//	// Expose via HTTP for Prometheus scraping:
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// Thread-safe: the underlying Prometheus collectors handle concurrent
// updates.
type Metrics struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runsFailed    *prometheus.CounterVec
	nodeLatency   *prometheus.HistogramVec
	toolCalls     *prometheus.CounterVec
	runHops       prometheus.Histogram
}

// NewMetrics creates and registers all agent run metrics with the
// provided Prometheus registry.
//
// Pass nil to register with the global prometheus.DefaultRegisterer;
// a dedicated registry is recommended for isolation (and required when
// constructing more than one Metrics in a process).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "runs_started_total",
			Help:      "Agent runs begun",
		}),
		runsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "runs_completed_total",
			Help:      "Agent runs that reached END",
		}),
		runsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "runs_failed_total",
			Help:      "Agent runs terminated by an error, by failure kind",
		}, []string{"kind"}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentgraph",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"node", "status"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "tool_calls_total",
			Help:      "Capability invocations dispatched by the tool executor",
		}, []string{"tool", "status"}),
		runHops: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agentgraph",
			Name:      "run_hops",
			Help:      "Node executions per completed run",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 25},
		}),
	}
}

// RunStarted increments the started-runs counter.
func (m *Metrics) RunStarted() {
	m.runsStarted.Inc()
}

// RunCompleted records a successful run and its hop count.
func (m *Metrics) RunCompleted(hops int) {
	m.runsCompleted.Inc()
	m.runHops.Observe(float64(hops))
}

// RunFailed records a failed run under its failure kind.
func (m *Metrics) RunFailed(kind string) {
	m.runsFailed.WithLabelValues(kind).Inc()
}

// ObserveNode records one node execution with its duration and outcome
// ("success" or "error").
func (m *Metrics) ObserveNode(node string, latency time.Duration, status string) {
	m.nodeLatency.WithLabelValues(node, status).Observe(float64(latency.Milliseconds()))
}

// ObserveToolCall records one capability invocation with its outcome
// ("success" or "error").
func (m *Metrics) ObserveToolCall(tool, status string) {
	m.toolCalls.WithLabelValues(tool, status).Inc()
}
