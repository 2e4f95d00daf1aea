package metrics

import (
	"context"
	"testing"
)

func TestNilMetricsAreNoop(t *testing.T) {
	var m *OTelMetrics
	ctx := context.Background()

	m.RecordPlanCreated(ctx, "public")
	m.RecordPlanDeleted(ctx)
	m.RecordCopySaved(ctx, true)
	m.RecordFeedPage(ctx, 3, false)
	m.RecordPublishFailed(ctx, "plan.invited")
}

func TestInitMetrics(t *testing.T) {
	if err := InitMetrics(); err != nil {
		t.Fatalf("InitMetrics() = %v", err)
	}
	m := GetMetrics()
	if m == nil {
		t.Fatal("GetMetrics() = nil after init")
	}
	m.RecordCopySaved(context.Background(), false)
	m.RecordFeedPage(context.Background(), 20, true)
}
