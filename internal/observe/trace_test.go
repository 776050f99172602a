package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installTestTracer swaps the global tracer provider for an in-memory one so
// spans started through this package can be inspected.
func installTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func TestWithSpanRecordsSuccess(t *testing.T) {
	exp := installTestTracer(t)

	err := WithSpan(context.Background(), "ingest document", func(ctx context.Context) error {
		if CorrelationID(ctx) == "" {
			t.Error("operation ran without an active trace")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithSpan: %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "ingest document" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "ingest document")
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", spans[0].Status.Code)
	}
}

func TestWithSpanRecordsFailure(t *testing.T) {
	exp := installTestTracer(t)

	boom := errors.New("review failed")
	err := WithSpan(context.Background(), "review file", func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithSpan returned %v, want the operation's own error", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("failure recorded no span event")
	}
}

func TestCorrelationIDEmptyWithoutTrace(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID = %q, want empty without an active span", got)
	}
}

func TestCorrelationIDIsTraceHex(t *testing.T) {
	installTestTracer(t)

	ctx, span := StartSpan(context.Background(), "turn")
	defer span.End()

	cid := CorrelationID(ctx)
	if len(cid) != 32 {
		t.Fatalf("correlation ID length = %d, want 32", len(cid))
	}
	for _, c := range cid {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("correlation ID %q is not lowercase hex", cid)
		}
	}
}

func TestLoggerCarriesTraceContext(t *testing.T) {
	installTestTracer(t)

	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })

	ctx, span := StartSpan(context.Background(), "turn")
	defer span.End()

	Logger(ctx).Info("reply spoken")
	if !bytes.Contains(buf.Bytes(), []byte("trace_id=")) || !bytes.Contains(buf.Bytes(), []byte("span_id=")) {
		t.Errorf("log line missing trace context: %s", buf.String())
	}

	buf.Reset()
	Logger(context.Background()).Info("no trace")
	if bytes.Contains(buf.Bytes(), []byte("trace_id=")) {
		t.Errorf("log line carries trace context without a span: %s", buf.String())
	}
}

