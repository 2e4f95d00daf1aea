package otel

import (
	"context"
	"strings"
	"testing"
)

func TestConfigWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		env  string
		want float64
	}{
		{"empty env is development", Config{SampleRatio: 0.3}, "development", 1},
		{"production keeps ratio", Config{Environment: "production", SampleRatio: 0.3}, "production", 0.3},
		{"production default ratio", Config{Environment: "production"}, "production", defaultSampleRatio},
		{"negative ratio", Config{Environment: "staging", SampleRatio: -1}, "staging", defaultSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.withDefaults()
			if got.Environment != tt.env || got.SampleRatio != tt.want {
				t.Fatalf("withDefaults() = %+v, want env %s ratio %v", got, tt.env, tt.want)
			}
		})
	}
}

func TestConfigSampler(t *testing.T) {
	desc := Config{SampleRatio: 0.25}.sampler().Description()
	if !strings.HasPrefix(desc, "ParentBased") || !strings.Contains(desc, "0.25") {
		t.Fatalf("sampler = %s", desc)
	}
}

func TestConfigEndpoint(t *testing.T) {
	tests := map[string]string{
		"localhost:4317":         "localhost:4317",
		"http://collector:4317":  "collector:4317",
		"https://collector:4317": "collector:4317",
	}
	for in, want := range tests {
		if got := (Config{OTLPEndpoint: in}).endpoint(); got != want {
			t.Errorf("endpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfigAttributes(t *testing.T) {
	attrs := Config{ServiceName: "tripplanner-worker", Environment: "test"}.attributes()
	got := map[string]string{}
	for _, kv := range attrs {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	if got["service.namespace"] != namespace || got["service.name"] != "tripplanner-worker" {
		t.Fatalf("attributes = %v", got)
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, false)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
