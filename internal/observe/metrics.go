// Package observe provides application-wide observability primitives for
// Asthralios: OpenTelemetry metrics, tracing, and the HTTP endpoint that
// exposes them.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from the standard /metrics endpoint served by [NewServer]. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Asthralios metrics.
const meterName = "github.com/markizano/asthralios"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks dialogue inference latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// TurnDuration tracks the full conversation turn: utterance closed to
	// playback finished.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts captured utterances that reached transcription.
	Utterances metric.Int64Counter

	// UtteranceDuration tracks the spoken length of captured utterances.
	UtteranceDuration metric.Float64Histogram

	// BargeIns counts playback flushes triggered by the user speaking over
	// the agent.
	BargeIns metric.Int64Counter

	// ChatMessages counts handled chat messages. Use with attribute:
	//   attribute.String("adapter", ...)
	ChatMessages metric.Int64Counter

	// IngestedChunks counts document chunks written to memory. Use with
	// attribute: attribute.String("content_type", ...)
	IngestedChunks metric.Int64Counter

	// ProviderRequests counts collaborator API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts collaborator errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// speechBuckets defines bucket boundaries (in seconds) for spoken utterance
// lengths, which run much longer than pipeline latencies.
var speechBuckets = []float64{
	0.5, 1, 2, 4, 8, 15, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("asthralios.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("asthralios.llm.duration",
		metric.WithDescription("Latency of dialogue inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("asthralios.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("asthralios.turn.duration",
		metric.WithDescription("End-to-end conversation turn latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("asthralios.utterance.duration",
		metric.WithDescription("Spoken length of captured utterances."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(speechBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("asthralios.utterances",
		metric.WithDescription("Total captured utterances that reached transcription."),
	); err != nil {
		return nil, err
	}
	if met.BargeIns, err = m.Int64Counter("asthralios.barge_ins",
		metric.WithDescription("Total playback flushes caused by the user speaking over the agent."),
	); err != nil {
		return nil, err
	}
	if met.ChatMessages, err = m.Int64Counter("asthralios.chat.messages",
		metric.WithDescription("Total handled chat messages by adapter."),
	); err != nil {
		return nil, err
	}
	if met.IngestedChunks, err = m.Int64Counter("asthralios.ingest.chunks",
		metric.WithDescription("Total document chunks written to memory by content type."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("asthralios.provider.requests",
		metric.WithDescription("Total collaborator API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("asthralios.provider.errors",
		metric.WithDescription("Total collaborator errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("asthralios.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a collaborator request counter increment with
// the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a collaborator error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordUtterance records one captured utterance and its spoken length.
func (m *Metrics) RecordUtterance(ctx context.Context, spoken time.Duration) {
	m.Utterances.Add(ctx, 1)
	m.UtteranceDuration.Record(ctx, spoken.Seconds())
}

// RecordBargeIn records one playback flush caused by the user interrupting.
func (m *Metrics) RecordBargeIn(ctx context.Context) {
	m.BargeIns.Add(ctx, 1)
}

// RecordChatMessage records one handled chat message for the named adapter.
func (m *Metrics) RecordChatMessage(ctx context.Context, adapter string) {
	m.ChatMessages.Add(ctx, 1,
		metric.WithAttributes(attribute.String("adapter", adapter)),
	)
}

// RecordIngestedChunks records n document chunks written to memory.
func (m *Metrics) RecordIngestedChunks(ctx context.Context, contentType string, n int64) {
	m.IngestedChunks.Add(ctx, n,
		metric.WithAttributes(attribute.String("content_type", contentType)),
	)
}
