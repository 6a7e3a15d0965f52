package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracerWriter(t *testing.T) {
	var buf bytes.Buffer
	tp, err := InitTracerWriter("immoshift-web-test", &buf)
	if err != nil {
		t.Fatalf("InitTracerWriter() error = %v", err)
	}
	if TracerProvider != tp {
		t.Errorf("TracerProvider not set")
	}

	_, span := otel.Tracer("test").Start(context.Background(), "page.home")
	span.End()
	ShutdownTracer(context.Background())

	out := buf.String()
	if !strings.Contains(out, "page.home") {
		t.Errorf("exported spans missing span name: %q", out)
	}
	if !strings.Contains(out, "immoshift-web-test") {
		t.Errorf("exported spans missing service name: %q", out)
	}
	if TracerProvider != nil {
		t.Errorf("TracerProvider = %v after shutdown, want nil", TracerProvider)
	}
}

func TestShutdownWithoutInit(t *testing.T) {
	TracerProvider = nil
	ShutdownTracer(context.Background())
}
