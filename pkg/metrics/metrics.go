// Package metrics provides Prometheus instrumentation for the jencoder front ends.
package metrics

import (
	"strconv"
	"time"

	"github.com/boogy/jencoder/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all jencoder metrics
	Namespace = "jencoder"

	// Label names
	LabelOperation  = "operation"
	LabelAlgorithm  = "algorithm"
	LabelStatus     = "status"
	LabelErrorCode  = "error_code"
	LabelRoute      = "route"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// RouteOther labels requests to paths that are not served
	RouteOther = "other"

	// Operation names
	OpSign      = "sign"
	OpDecode    = "decode"
	OpPublicKey = "public_key"
)

var (
	// OperationsTotal counts engine operations by algorithm and outcome
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of engine operations by type, algorithm, and status",
		},
		[]string{LabelOperation, LabelAlgorithm, LabelStatus},
	)

	// OperationDuration tracks engine latency. RSA signing dominates the upper buckets.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{LabelOperation, LabelAlgorithm},
	)

	// ErrorsTotal counts failed operations by stable error code
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation and error code",
		},
		[]string{LabelOperation, LabelErrorCode},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		},
		[]string{LabelRoute, LabelStatusCode},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelRoute},
	)
)

// RecordOperation records one engine call. A nil err counts as success;
// otherwise the error is also counted under its error code.
func RecordOperation(operation, algorithm string, err error, duration time.Duration) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
		ErrorsTotal.WithLabelValues(operation, types.ErrorKind(err)).Inc()
	}

	// Unknown algorithm ids come from clients; keep label cardinality bounded
	if types.ErrorKind(err) == types.CodeUnsupportedAlgorithm {
		algorithm = "unsupported"
	}

	OperationsTotal.WithLabelValues(operation, algorithm, status).Inc()
	OperationDuration.WithLabelValues(operation, algorithm).Observe(duration.Seconds())
}

// RecordHTTPRequest records one HTTP or Lambda request
func RecordHTTPRequest(route string, statusCode int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
