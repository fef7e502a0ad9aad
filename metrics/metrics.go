// Package metrics holds the Prometheus collectors of the back-office.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/leandroluk/golem-admin/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backoffice_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// ClausesTotal counts compiled filter clauses by outcome.
	ClausesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_filter_clauses_total",
			Help: "Total number of compiled filter clauses",
		},
		[]string{"outcome"},
	)
	// OperationsTotal counts driver operations by model, operation and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_driver_operations_total",
			Help: "Total number of driver operations",
		},
		[]string{"model", "operation", "status"},
	)
	// OperationDuration is the latency of driver operations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backoffice_driver_operation_duration_seconds",
			Help:    "Driver operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// ObserveClause records the outcome of one compiled clause. It matches the
// signature expected by core.WithClauseObserver.
func ObserveClause(outcome core.ClauseOutcome) {
	ClausesTotal.WithLabelValues(string(outcome)).Inc()
}

// Middleware records every driver operation run through a core.Pipeline.
func Middleware() core.Middleware {
	return func(next core.Handler) core.Handler {
		return func(ctx context.Context, op core.Operation, payload core.OperationPayload) error {
			start := time.Now()
			err := next(ctx, op, payload)
			status := "ok"
			if err != nil {
				status = "error"
			}
			model := "unknown"
			if payload.Model != nil {
				model = payload.Model.Name
			}
			OperationsTotal.WithLabelValues(model, string(op), status).Inc()
			OperationDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
