package observability

import (
	"context"
	"testing"
)

func TestSetupDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Setup(ctx, Config{Enabled: false, AgentHost: "localhost:4318"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown func is nil")
	}
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetupAgentUnavailable(t *testing.T) {
	ctx := context.Background()

	// Exporter creation succeeds even without a reachable collector;
	// span export fails silently later. Setup must not error.
	shutdown, err := Setup(ctx, Config{
		Enabled:     true,
		AgentHost:   "localhost:1", // nothing listens here
		Environment: "test",
		ServiceName: "esgpilot-test",
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown func is nil")
	}
}

func TestDefaultAgentHostValue(t *testing.T) {
	if DefaultAgentHost != "localhost:4318" {
		t.Errorf("DefaultAgentHost = %q", DefaultAgentHost)
	}
}
