package database

import (
	"context"
	"testing"
)

func TestSanitizeSQL(t *testing.T) {
	p := NewOTELPlugin(PluginConfig{MaxSQLLength: 200})

	got := p.sanitizeSQL(`UPDATE "users" SET password_hash='$2a$10$abc' WHERE id='1'`)
	want := `UPDATE "users" SET password_hash='***' WHERE id='1'`
	if got != want {
		t.Fatalf("sanitizeSQL() = %q, want %q", got, want)
	}

	short := NewOTELPlugin(PluginConfig{MaxSQLLength: 6})
	if got := short.sanitizeSQL("SELECT * FROM travel_plans"); got != "SELECT..." {
		t.Fatalf("sanitizeSQL() truncation = %q", got)
	}
}

func TestRecordMetricsWithoutInit(t *testing.T) {
	recordMetrics(context.Background(), "db.select", "success", 0.01)
}
