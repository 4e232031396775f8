package telemetry

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/koscakluka/ema-commander/internal/config"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func restoreGlobalProviders(t *testing.T) {
	t.Helper()
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

func TestInitDisabledIsNoop(t *testing.T) {
	restoreGlobalProviders(t)

	p, err := Init(context.Background(), config.TelemetryConfig{})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if p.tp != nil || p.mp != nil || p.MetricsAddr() != "" {
		t.Fatalf("expected noop providers, got %+v", p)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}

	var nilProviders *Providers
	if err := nilProviders.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil shutdown: %v", err)
	}
}

func TestInitServesPrometheusMetrics(t *testing.T) {
	restoreGlobalProviders(t)

	p, err := Init(context.Background(), config.TelemetryConfig{
		Enabled:        true,
		ServiceName:    "ema-commander-test",
		PrometheusAddr: "127.0.0.1:0",
		SampleRate:     1,
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("expected SDK tracer provider to be installed")
	}
	if _, ok := otel.GetMeterProvider().(*sdkmetric.MeterProvider); !ok {
		t.Fatalf("expected SDK meter provider to be installed")
	}

	counter, err := otel.Meter("telemetry_test").Int64Counter("tasks.started")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 2)

	resp, err := http.Get("http://" + p.MetricsAddr() + "/metrics")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "tasks_started") {
		t.Fatalf("expected counter in scrape output:\n%s", body)
	}
}

func TestInitFailsOnUnusableMetricsAddress(t *testing.T) {
	restoreGlobalProviders(t)

	_, err := Init(context.Background(), config.TelemetryConfig{
		Enabled:        true,
		PrometheusAddr: "256.0.0.1:bad",
		SampleRate:     1,
	})
	if err == nil {
		t.Fatalf("expected listen failure")
	}
}
