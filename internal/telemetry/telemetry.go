// Package telemetry records build metrics with Prometheus and traces build
// stages with OpenTelemetry.
//
// A nil *Recorder is valid and records nothing.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/pyfreeze/internal/errors"
)

// Config configures a Recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "pyfreeze").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for stage durations in seconds.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// Tracer creates the stage spans (default: otel.Tracer("pyfreeze")).
	Tracer trace.Tracer
}

// Option configures a Recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

// WithTracer sets the tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Config) { c.Tracer = tracer }
}

// Builds run for minutes, so the default buckets reach an hour.
var defaultBuckets = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600}

func defaultConfig() Config {
	return Config{
		Namespace: "pyfreeze",
		Buckets:   defaultBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Recorder records build metrics and spans.
type Recorder struct {
	buildsTotal    *prometheus.CounterVec
	buildDuration  prometheus.Histogram
	stageDuration  *prometheus.HistogramVec
	stageErrors    *prometheus.CounterVec
	artifactBytes  prometheus.Gauge
	resourcesTotal prometheus.Gauge
	tracer         trace.Tracer
}

// New creates a Recorder and registers its metrics.
func New(opts ...Option) *Recorder {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer("pyfreeze")
	}

	factory := promauto.With(config.Registry)
	return &Recorder{
		buildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "builds_total",
			Help:        "Total number of builds by backend and result",
			ConstLabels: config.ConstLabels,
		}, []string{"backend", "result"}),

		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "build_duration_seconds",
			Help:        "Duration of complete builds in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "stage_duration_seconds",
			Help:        "Duration of build stages in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"stage"}),

		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "stage_errors_total",
			Help:        "Total number of failed build stages by error kind",
			ConstLabels: config.ConstLabels,
		}, []string{"stage", "kind"}),

		artifactBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "artifact_bytes",
			Help:        "Size of the last published dist directory in bytes",
			ConstLabels: config.ConstLabels,
		}),

		resourcesTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "resources",
			Help:        "Number of resource files bundled by the last build",
			ConstLabels: config.ConstLabels,
		}),

		tracer: config.Tracer,
	}
}

// Done ends a span and records its outcome.
type Done func(err error)

// StartBuild starts the root span of a build.
func (r *Recorder) StartBuild(ctx context.Context, buildID, backend string) (context.Context, Done) {
	if r == nil {
		return ctx, func(error) {}
	}
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "pyfreeze.build",
		trace.WithAttributes(
			attribute.String("pyfreeze.build_id", buildID),
			attribute.String("pyfreeze.backend", backend),
		),
	)
	return ctx, func(err error) {
		result := "success"
		if err != nil {
			result = "failure"
			endWithError(span, err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		r.buildsTotal.WithLabelValues(backend, result).Inc()
		r.buildDuration.Observe(time.Since(start).Seconds())
		span.End()
	}
}

// StartStage starts the span of one build stage.
func (r *Recorder) StartStage(ctx context.Context, stage string) (context.Context, Done) {
	if r == nil {
		return ctx, func(error) {}
	}
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "pyfreeze."+stage)
	return ctx, func(err error) {
		r.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		if err != nil {
			kind := string(errors.KindOf(err))
			if kind == "" {
				kind = "unknown"
			}
			r.stageErrors.WithLabelValues(stage, kind).Inc()
			endWithError(span, err)
		}
		span.End()
	}
}

// ObserveOutput records the size of the published output.
func (r *Recorder) ObserveOutput(bytes int64, resources int) {
	if r == nil {
		return
	}
	r.artifactBytes.Set(float64(bytes))
	r.resourcesTotal.Set(float64(resources))
}

func endWithError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if be, ok := errors.As(err); ok {
		span.SetAttributes(
			attribute.String("pyfreeze.error.code", be.Code),
			attribute.String("pyfreeze.error.kind", string(be.Kind)),
		)
	}
}

// WriteTextfile writes all metrics gathered by g to path in the Prometheus
// text format, for collection by the node exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
