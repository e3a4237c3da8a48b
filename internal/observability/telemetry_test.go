package observability_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/biomelabs/biomectl/internal/observability"
)

type testPropagator struct{}

func (testPropagator) Inject(context.Context, propagation.TextMapCarrier) {}

func (testPropagator) Extract(ctx context.Context, _ propagation.TextMapCarrier) context.Context {
	return ctx
}

func (testPropagator) Fields() []string { return nil }

type testErrorHandler struct{}

func (testErrorHandler) Handle(error) {}

func TestSetupTelemetry_Disabled(t *testing.T) {
	origTP := otel.GetTracerProvider()
	origPropagator := otel.GetTextMapPropagator()
	origErrorHandler := otel.GetErrorHandler()

	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		otel.SetTextMapPropagator(origPropagator)
		otel.SetErrorHandler(origErrorHandler)
	})

	sentinelPropagator := testPropagator{}
	sentinelErrorHandler := testErrorHandler{}

	otel.SetTextMapPropagator(sentinelPropagator)
	otel.SetErrorHandler(sentinelErrorHandler)

	shutdown, err := observability.SetupTelemetry(context.Background(), &observability.TelemetryConfig{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	if _, ok := otel.GetTextMapPropagator().(testPropagator); !ok {
		t.Fatal("propagator changed when telemetry disabled")
	}

	if _, ok := otel.GetErrorHandler().(testErrorHandler); !ok {
		t.Fatal("error handler changed when telemetry disabled")
	}
}

func TestSetupTelemetry_NilConfig(t *testing.T) {
	shutdown, err := observability.SetupTelemetry(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if shutdown == nil {
		t.Fatal("shutdown = nil, want noop function")
	}

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown error: %v", err)
	}
}

func TestIsTelemetryEnabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"0", false},
		{"off", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("OTEL_ENABLED", tt.value)

			if got := observability.IsTelemetryEnabled(); got != tt.want {
				t.Errorf("IsTelemetryEnabled() with OTEL_ENABLED=%q = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestTracer_ReturnsNamedTracer(t *testing.T) {
	if got := observability.Tracer("biomectl-test"); got == nil {
		t.Fatal("Tracer() = nil")
	}
}
