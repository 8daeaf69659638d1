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

package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// scopeName identifies this instrumentation library to OpenTelemetry.
const scopeName = "alder.dev/router/telemetry"

// initMetricsProvider builds the metrics pipeline for the configured
// provider, unless the caller supplied one.
func (r *Recorder) initMetricsProvider() error {
	r.serviceAttrs = []attribute.KeyValue{
		attribute.String("service.name", r.serviceName),
		attribute.String("service.version", r.serviceVersion),
	}

	if r.meterProvider != nil {
		r.meter = r.meterProvider.Meter(scopeName)
		return nil
	}

	switch r.provider {
	case PrometheusProvider:
		return r.initPrometheus()
	case OTLPProvider:
		return r.initOTLP()
	case StdoutProvider:
		return r.initStdout()
	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}
}

// initPrometheus uses a private registry so multiple Recorders never
// fight over the global one.
func (r *Recorder) initPrometheus() error {
	r.promRegistry = promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(r.promRegistry))
	if err != nil {
		return fmt.Errorf("prometheus exporter: %w", err)
	}

	r.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	r.ownsMeter = true
	r.meter = r.meterProvider.Meter(scopeName)
	r.promHandler = promhttp.HandlerFor(r.promRegistry, promhttp.HandlerOpts{})
	return nil
}

func (r *Recorder) initOTLP() error {
	var opts []otlpmetrichttp.Option
	if r.otlpEndpoint != "" {
		endpoint, insecure := parseEndpoint(r.otlpEndpoint)
		opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		if insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("otlp exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))
	r.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r.ownsMeter = true
	r.meter = r.meterProvider.Meter(scopeName)
	return nil
}

func (r *Recorder) initStdout() error {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("stdout exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))
	r.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r.ownsMeter = true
	r.meter = r.meterProvider.Meter(scopeName)
	return nil
}

// parseEndpoint strips the scheme and any path from an endpoint string,
// reporting whether plaintext HTTP was requested.
func parseEndpoint(endpoint string) (string, bool) {
	insecure := false
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint = rest
		insecure = true
	} else if rest, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = rest
	}
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return endpoint, insecure
}

// initInstruments creates the HTTP instruments on the configured meter.
func (r *Recorder) initInstruments() error {
	var err error

	r.requestDuration, err = r.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...),
	)
	if err != nil {
		return fmt.Errorf("request duration histogram: %w", err)
	}

	r.requestCount, err = r.meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return fmt.Errorf("request counter: %w", err)
	}

	r.activeRequests, err = r.meter.Int64UpDownCounter(
		"http_requests_active",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		return fmt.Errorf("active requests counter: %w", err)
	}

	r.responseSize, err = r.meter.Int64Histogram(
		"http_response_size_bytes",
		metric.WithDescription("Size of HTTP response bodies in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(r.sizeBuckets...),
	)
	if err != nil {
		return fmt.Errorf("response size histogram: %w", err)
	}

	r.errorCount, err = r.meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP error responses"),
	)
	if err != nil {
		return fmt.Errorf("error counter: %w", err)
	}

	return nil
}

// initTracing builds the stdout tracer provider when requested, or adopts
// the caller's. Tracing stays off otherwise.
func (r *Recorder) initTracing() error {
	if r.tracerProvider != nil {
		r.tracer = r.tracerProvider.Tracer(scopeName)
		return nil
	}
	if !r.stdoutTracing {
		return nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("stdout trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(r.serviceName),
		semconv.ServiceVersion(r.serviceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(r.sampleRate))),
	)
	r.tracerProvider = tp
	r.ownsTracer = true
	r.tracer = tp.Tracer(scopeName)
	return nil
}

// startMetricsServer serves the scrape endpoint on its own listener.
func (r *Recorder) startMetricsServer() {
	if r.promHandler == nil {
		r.logger.Warn("metrics server requires the Prometheus provider; not starting",
			"provider", string(r.provider))
		return
	}

	mux := http.NewServeMux()
	mux.Handle(r.metricsPath, r.promHandler)

	server := &http.Server{
		Addr:         r.metricsAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	r.serverMu.Lock()
	r.metricsServer = server
	r.serverMu.Unlock()

	addr := r.metricsAddr
	path := r.metricsPath
	go func() {
		r.logger.Info("metrics server starting", "address", addr+path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.serverMu.Lock()
			r.metricsServer = nil
			r.serverMu.Unlock()
			r.logger.LogAttrs(context.Background(), slog.LevelError, "metrics server failed",
				slog.String("address", addr),
				slog.Any("error", err),
			)
		}
	}()
}

func (r *Recorder) stopMetricsServer(ctx context.Context) error {
	r.serverMu.Lock()
	server := r.metricsServer
	r.metricsServer = nil
	r.serverMu.Unlock()

	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	return nil
}
