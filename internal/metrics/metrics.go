// Package metrics holds the Prometheus instrumentation of the client.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace is used when none is configured.
const DefaultNamespace = "vaultclient"

// Metrics is the set of client collectors.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	pollAttempts    prometheus.Histogram
	staleRetries    prometheus.Counter
	faucetFunded    prometheus.Counter
}

// New registers the client collectors on reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Node and faucet HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Node and faucet HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "submissions_total",
			Help:      "Transaction submissions by result",
		}, []string{"result"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "rejections_total",
			Help:      "Node rejections by reason",
		}, []string{"reason"}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "outcomes_total",
			Help:      "Terminal submission outcomes by status",
		}, []string{"status"}),
		pollAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "poll_attempts",
			Help:      "Status polls needed to reach an outcome",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		}),
		staleRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "stale_sequence_retries_total",
			Help:      "Submissions retried after a stale sequence number",
		}),
		faucetFunded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "faucet",
			Name:      "funded_amount_total",
			Help:      "Amount requested from the faucet",
		}),
	}
}

// ObserveRequest records one HTTP request. Its signature matches
// rpcclient.Observer.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration, _ error) {
	if m == nil {
		return
	}
	r := Route(path)
	code := "error"
	if status != 0 {
		code = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, r, code).Inc()
	m.requestDuration.WithLabelValues(method, r).Observe(elapsed.Seconds())
}

// Submission counts a submission result: accepted, rejected, transport or
// deduplicated.
func (m *Metrics) Submission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

// Rejection counts a node rejection.
func (m *Metrics) Rejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// Outcome counts a terminal outcome and the polls it took.
func (m *Metrics) Outcome(status string, attempts int) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(status).Inc()
	m.pollAttempts.Observe(float64(attempts))
}

// StaleRetry counts an automatic refetch-and-retry.
func (m *Metrics) StaleRetry() {
	if m == nil {
		return
	}
	m.staleRetries.Inc()
}

// FaucetFunded adds a funded amount.
func (m *Metrics) FaucetFunded(amount uint64) {
	if m == nil {
		return
	}
	m.faucetFunded.Add(float64(amount))
}

// Route reduces a request path to a low-cardinality label by dropping
// addresses, hashes and type tags:
//
//	/accounts/0x1                      -> accounts
//	/accounts/0x1/resource/0x1::a::B   -> accounts/resource
//	/transactions/0xabc                -> transactions
func Route(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	var keep []string
	for i, p := range parts {
		if p == "" {
			continue
		}
		// Even positions are collection names; odd ones are identifiers.
		if i%2 == 0 {
			keep = append(keep, p)
		}
	}
	if len(keep) == 0 {
		return "root"
	}
	return strings.Join(keep, "/")
}
