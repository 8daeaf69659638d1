// Copyright 2025 The Alder Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry implements the router's ObservabilityRecorder on
// OpenTelemetry: request metrics through a Prometheus, OTLP, or stdout
// provider, optional tracing, and request-scoped loggers carrying trace
// IDs.
//
// Instruments are labeled with the matched route pattern, never the raw
// path, so cardinality stays bounded no matter what clients request.
//
// # Quick Start
//
//	rec, err := telemetry.New(
//	    telemetry.WithServiceName("orders"),
//	    telemetry.WithServiceVersion("1.4.2"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rec.Shutdown(context.Background())
//
//	r := router.MustNew(
//	    router.WithObservability(rec),
//	    router.WithRoutes(
//	        router.Get("/metrics", rec.MetricsHandler().ServeHTTP),
//	        router.Get("/orders/{id:int}", getOrder),
//	    ),
//	)
//
// By default nothing is registered globally; multiple Recorders can
// coexist in one process.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Provider identifies the metrics export path.
type Provider string

const (
	// PrometheusProvider exposes metrics for scraping (default).
	PrometheusProvider Provider = "prometheus"
	// OTLPProvider pushes metrics to an OTLP HTTP collector.
	OTLPProvider Provider = "otlp"
	// StdoutProvider prints metrics periodically, for development.
	StdoutProvider Provider = "stdout"
)

// Default histogram boundaries. Durations in seconds from sub-millisecond
// to ten seconds, sizes in bytes from 100B to 10MB.
var (
	DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	DefaultSizeBuckets     = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
)

// Recorder implements router.ObservabilityRecorder on OpenTelemetry.
// All methods are safe for concurrent use.
type Recorder struct {
	provider        Provider
	serviceName     string
	serviceVersion  string
	otlpEndpoint    string
	exportInterval  time.Duration
	durationBuckets []float64
	sizeBuckets     []float64

	logger     *slog.Logger
	propagator propagation.TextMapPropagator

	excludePaths    map[string]bool
	excludePrefixes []string

	meterProvider  metric.MeterProvider
	ownsMeter      bool
	meter          metric.Meter
	tracerProvider trace.TracerProvider
	ownsTracer     bool
	tracer         trace.Tracer
	stdoutTracing  bool
	sampleRate     float64

	promRegistry *promclient.Registry
	promHandler  http.Handler

	requestDuration metric.Float64Histogram
	requestCount    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	responseSize    metric.Int64Histogram
	errorCount      metric.Int64Counter

	serviceAttrs []attribute.KeyValue

	metricsAddr   string
	metricsPath   string
	serverMu      sync.Mutex
	metricsServer *http.Server
}

// New creates a Recorder with the given options and initializes the
// configured providers. The zero configuration uses Prometheus metrics
// with no tracing.
func New(opts ...Option) (*Recorder, error) {
	r := newDefaultRecorder()
	for _, opt := range opts {
		opt(r)
	}

	if err := r.initMetricsProvider(); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if err := r.initInstruments(); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if err := r.initTracing(); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if r.metricsAddr != "" {
		r.startMetricsServer()
	}

	return r, nil
}

// MustNew is like New but panics on error. Intended for initialization
// paths where a broken telemetry configuration should stop the process.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func newDefaultRecorder() *Recorder {
	return &Recorder{
		provider:        PrometheusProvider,
		serviceName:     "alder-service",
		serviceVersion:  "0.0.0",
		exportInterval:  30 * time.Second,
		durationBuckets: DefaultDurationBuckets,
		sizeBuckets:     DefaultSizeBuckets,
		logger:          slog.Default(),
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{},
		),
		excludePaths: make(map[string]bool),
		metricsPath:  "/metrics",
		sampleRate:   1.0,
	}
}

// MetricsHandler returns the Prometheus scrape handler for this
// Recorder's registry. Mount it on a route:
//
//	router.Get("/metrics", rec.MetricsHandler().ServeHTTP)
//
// With a non-Prometheus provider there is nothing to scrape and the
// returned handler answers 404.
func (r *Recorder) MetricsHandler() http.Handler {
	if r.promHandler != nil {
		return r.promHandler
	}
	return http.NotFoundHandler()
}

// Shutdown flushes and stops everything the Recorder owns: the periodic
// metric reader, the tracer provider, and the optional metrics server.
// Call it before process exit so final exports are not lost.
func (r *Recorder) Shutdown(ctx context.Context) error {
	var errs []error

	if err := r.stopMetricsServer(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.ownsMeter {
		if sd, ok := r.meterProvider.(interface{ Shutdown(context.Context) error }); ok {
			if err := sd.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
			}
		}
	}
	if r.ownsTracer {
		if sd, ok := r.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
			if err := sd.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
			}
		}
	}

	return errors.Join(errs...)
}

// statusClass buckets a status code into "2xx" style strings for
// low-cardinality labeling.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
