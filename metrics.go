package gufe

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// observability holds the OpenTelemetry instruments recorded by the core.
// A nil observer (the default) makes every recording a no-op.
type observability struct {
	tracer trace.Tracer

	// tokenizeCount increments for each content fingerprint computed.
	tokenizeCount metric.Int64Counter

	// dedupHits / dedupMisses track whether decoding found an existing
	// live instance or produced a fresh one.
	dedupHits   metric.Int64Counter
	dedupMisses metric.Int64Counter

	// decodeFailures increments for each failed decode, by operation.
	decodeFailures metric.Int64Counter
}

var observer atomic.Pointer[observability]

// ObservabilityOption configures EnableObservability.
type ObservabilityOption func(*observabilityConfig)

type observabilityConfig struct {
	meter  metric.Meter
	tracer trace.Tracer
}

// WithMeter enables metric recording through the given meter.
func WithMeter(m metric.Meter) ObservabilityOption {
	return func(cfg *observabilityConfig) {
		cfg.meter = m
	}
}

// WithTracer enables span recording around decode operations.
func WithTracer(tr trace.Tracer) ObservabilityOption {
	return func(cfg *observabilityConfig) {
		cfg.tracer = tr
	}
}

// EnableObservability turns on OpenTelemetry instrumentation for the
// package. It is optional: with no meter or tracer configured the core runs
// with zero recording overhead. Instruments created:
//
//   - gufe.tokenize.count: fingerprints computed, by concrete type
//   - gufe.decode.dedup.hits / gufe.decode.dedup.misses: instance-registry
//     substitutions during decode
//   - gufe.decode.failures: failed decodes, by operation
func EnableObservability(opts ...ObservabilityOption) error {
	var cfg observabilityConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	o := &observability{tracer: cfg.tracer}
	if cfg.meter != nil {
		var err error
		o.tokenizeCount, err = cfg.meter.Int64Counter(
			"gufe.tokenize.count",
			metric.WithDescription("Number of content fingerprints computed"),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("create tokenize counter: %w", err)
		}
		o.dedupHits, err = cfg.meter.Int64Counter(
			"gufe.decode.dedup.hits",
			metric.WithDescription("Decodes that returned an existing live instance"),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("create dedup hit counter: %w", err)
		}
		o.dedupMisses, err = cfg.meter.Int64Counter(
			"gufe.decode.dedup.misses",
			metric.WithDescription("Decodes that produced a fresh instance"),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("create dedup miss counter: %w", err)
		}
		o.decodeFailures, err = cfg.meter.Int64Counter(
			"gufe.decode.failures",
			metric.WithDescription("Failed decode operations"),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("create decode failure counter: %w", err)
		}
	}

	observer.Store(o)
	return nil
}

// DisableObservability removes any configured instrumentation.
func DisableObservability() {
	observer.Store(nil)
}

func recordTokenize(typeName string) {
	o := observer.Load()
	if o == nil || o.tokenizeCount == nil {
		return
	}
	o.tokenizeCount.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("gufe.type", typeName)))
}

func recordDedup(hit bool) {
	o := observer.Load()
	if o == nil {
		return
	}
	if hit {
		if o.dedupHits != nil {
			o.dedupHits.Add(context.Background(), 1)
		}
	} else if o.dedupMisses != nil {
		o.dedupMisses.Add(context.Background(), 1)
	}
}

// observeDecode starts a span for a decode operation and returns the
// function to call with its outcome. Safe to call with observability off.
func observeDecode(op string) func(error) {
	o := observer.Load()
	if o == nil {
		return func(error) {}
	}

	var span trace.Span
	if o.tracer != nil {
		_, span = o.tracer.Start(context.Background(), "gufe."+op)
	}

	return func(err error) {
		if err != nil && o.decodeFailures != nil {
			o.decodeFailures.Add(context.Background(), 1,
				metric.WithAttributes(attribute.String("gufe.op", op)))
		}
		if span == nil {
			return
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
