package tracing

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestNewProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	p, err := NewProvider(context.Background(), Config{
		Endpoint:       "127.0.0.1:4318",
		ServiceName:    "widgets-test",
		ServiceVersion: "dev",
		Insecure:       true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if otel.GetTracerProvider() != p.tp {
		t.Error("provider not installed globally")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewProviderRequiresEndpoint(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{}); err == nil {
		t.Error("expected an error without endpoint")
	}
}

func TestNilProviderShutdown(t *testing.T) {
	var p *Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Error(err)
	}
}
