package otel

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"carecircle/pkg/config"
)

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{1.5, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := Sampler(tt.ratio).Description(); !strings.Contains(got, tt.want) {
			t.Errorf("Sampler(%v) = %s, want it to contain %s", tt.ratio, got, tt.want)
		}
	}
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init("carecircle-test", config.OtelConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	shutdown()
	if Tracer() == nil {
		t.Fatal("tracer should never be nil")
	}
}
