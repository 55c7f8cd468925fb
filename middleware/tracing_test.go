package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/id"
	mw "github.com/yeonuk-hwang/viral-marketing-reporter-v2/middleware"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer("test")
	return sr, tracer
}

func TestTracing_CreatesSpan(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)

	err := m(context.Background(), testMessage(), func(_ context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	if spans[0].Name() != "reporter.bus.dispatch" {
		t.Errorf("expected span name %q, got %q", "reporter.bus.dispatch", spans[0].Name())
	}
}

func TestTracing_SpanAttributes(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)

	tests := []struct {
		name     string
		msg      domain.Message
		wantKind string
	}{
		{"event", domain.JobStarted{JobID: id.NewJobID()}, "event"},
		{"command", domain.ExecuteTask{JobID: id.NewJobID(), TaskID: id.NewTaskID()}, "command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(sr.Ended())
			_ = m(context.Background(), tt.msg, func(_ context.Context) error {
				return nil
			})

			spans := sr.Ended()
			if len(spans) != before+1 {
				t.Fatalf("expected %d spans, got %d", before+1, len(spans))
			}

			attrMap := make(map[string]string)
			for _, a := range spans[len(spans)-1].Attributes() {
				if a.Value.Type() == attribute.STRING {
					attrMap[string(a.Key)] = a.Value.AsString()
				}
			}

			if attrMap["reporter.message"] != tt.msg.MessageName() {
				t.Errorf("reporter.message = %q, want %q", attrMap["reporter.message"], tt.msg.MessageName())
			}
			if attrMap["reporter.message.kind"] != tt.wantKind {
				t.Errorf("reporter.message.kind = %q, want %q", attrMap["reporter.message.kind"], tt.wantKind)
			}
		})
	}
}

func TestTracing_ErrorStatus(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)
	want := errors.New("search failed")

	err := m(context.Background(), testMessage(), func(_ context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status().Code)
	}
}
