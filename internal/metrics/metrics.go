// SPDX-License-Identifier: MIT

// Package metrics defines the Prometheus metrics exposed by brendacyc.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Import metrics
	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brendacyc_imports_total",
		Help: "Import runs by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	importDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brendacyc_import_duration_seconds",
		Help:    "Wall time of a full import run",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	recordsImported = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "brendacyc_records_imported",
		Help: "Number of records stored by the last import",
	})

	enzymesImported = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "brendacyc_enzymes_imported",
		Help: "Number of distinct EC numbers stored by the last import",
	})

	transferredDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "brendacyc_transferred_deleted_enzymes",
		Help: "Number of transferred or deleted EC numbers in the last import",
	})

	exportWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brendacyc_export_writes_total",
		Help: "Export file writes by format and outcome",
	}, []string{"format", "outcome"})

	// HTTP metrics
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brendacyc_http_requests_total",
		Help: "HTTP requests by route and status class",
	}, []string{"route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brendacyc_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// Cache metrics
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brendacyc_cache_lookups_total",
		Help: "Query cache lookups by result",
	}, []string{"result"}) // result=hit|miss
)

// RecordImport records the outcome and duration of an import run.
func RecordImport(err error, d time.Duration) {
	importDuration.Observe(d.Seconds())
	if err != nil {
		importsTotal.WithLabelValues("failure").Inc()
		return
	}
	importsTotal.WithLabelValues("success").Inc()
}

// SetImportSizes publishes the sizes of the last successful import.
func SetImportSizes(records, enzymes, transferred int) {
	recordsImported.Set(float64(records))
	enzymesImported.Set(float64(enzymes))
	transferredDeleted.Set(float64(transferred))
}

// RecordExport records one export write.
func RecordExport(format string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	exportWrites.WithLabelValues(format, outcome).Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(route string, status int, d time.Duration) {
	class := "2xx"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	case status >= 300:
		class = "3xx"
	}
	httpRequests.WithLabelValues(route, class).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordCacheLookup records a query cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}
