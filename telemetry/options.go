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
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithServiceName sets the service.name attribute on every instrument and
// span.
func WithServiceName(name string) Option {
	return func(r *Recorder) {
		if name != "" {
			r.serviceName = name
		}
	}
}

// WithServiceVersion sets the service.version attribute on every
// instrument and span.
func WithServiceVersion(version string) Option {
	return func(r *Recorder) {
		if version != "" {
			r.serviceVersion = version
		}
	}
}

// WithPrometheus selects the Prometheus metrics provider. This is the
// default; the option exists for explicit configuration. Scrape output is
// served by MetricsHandler.
func WithPrometheus() Option {
	return func(r *Recorder) {
		r.provider = PrometheusProvider
	}
}

// WithOTLP selects the OTLP HTTP metrics provider pushing to endpoint.
// An "http://" prefix switches the exporter to plaintext; any path suffix
// is ignored.
//
// Example:
//
//	telemetry.New(telemetry.WithOTLP("http://otel-collector:4318"))
func WithOTLP(endpoint string) Option {
	return func(r *Recorder) {
		r.provider = OTLPProvider
		r.otlpEndpoint = endpoint
	}
}

// WithStdout selects the stdout metrics provider, which prints a JSON
// export every interval. Development only.
func WithStdout() Option {
	return func(r *Recorder) {
		r.provider = StdoutProvider
	}
}

// WithExportInterval sets how often the OTLP and stdout providers export.
// Default is 30 seconds. Prometheus ignores it, being pull-based.
func WithExportInterval(interval time.Duration) Option {
	return func(r *Recorder) {
		if interval > 0 {
			r.exportInterval = interval
		}
	}
}

// WithMeterProvider uses a caller-owned MeterProvider instead of building
// one. The Recorder will not shut it down; its lifecycle stays with the
// caller. MetricsHandler answers 404 under this option since there is no
// Recorder-owned registry.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Recorder) {
		if provider != nil {
			r.meterProvider = provider
			r.ownsMeter = false
		}
	}
}

// WithDurationBuckets sets the request duration histogram boundaries, in
// seconds.
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.durationBuckets = buckets
		}
	}
}

// WithSizeBuckets sets the response size histogram boundaries, in bytes.
func WithSizeBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.sizeBuckets = buckets
		}
	}
}

// WithMetricsServer starts a dedicated HTTP server on addr serving the
// Prometheus scrape endpoint at /metrics, for deployments that keep the
// scrape port off the application listener. Without this option, mount
// MetricsHandler on a route instead.
func WithMetricsServer(addr string) Option {
	return func(r *Recorder) {
		r.metricsAddr = addr
	}
}

// WithStdoutTracing enables tracing with the pretty-printed stdout
// exporter. Development only; for production pass a configured provider
// through WithTracerProvider.
func WithStdoutTracing() Option {
	return func(r *Recorder) {
		r.stdoutTracing = true
	}
}

// WithTracerProvider enables tracing on a caller-owned TracerProvider.
// The Recorder will not shut it down.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	rec, err := telemetry.New(telemetry.WithTracerProvider(tp))
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(r *Recorder) {
		if provider != nil {
			r.tracerProvider = provider
			r.ownsTracer = false
		}
	}
}

// WithSampleRate sets the trace sampling ratio between 0 and 1 for the
// stdout tracing provider. Default samples everything.
func WithSampleRate(rate float64) Option {
	return func(r *Recorder) {
		if rate >= 0 && rate <= 1 {
			r.sampleRate = rate
		}
	}
}

// WithPropagator replaces the default W3C trace-context and baggage
// propagator used to pick up inbound trace headers.
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(r *Recorder) {
		if propagator != nil {
			r.propagator = propagator
		}
	}
}

// WithLogger sets the base logger. Request loggers derive from it and
// internal events (metrics server lifecycle, export failures) log
// through it.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithExcludePaths exempts exact paths from recording. Scrape and health
// endpoints are the usual candidates. Excluded requests still get
// propagated trace context.
func WithExcludePaths(paths ...string) Option {
	return func(r *Recorder) {
		for _, p := range paths {
			r.excludePaths[p] = true
		}
	}
}

// WithExcludePrefixes exempts paths under the given prefixes from
// recording.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(r *Recorder) {
		r.excludePrefixes = append(r.excludePrefixes, prefixes...)
	}
}
