package redis

import (
	"testing"
	"time"

	"TripPlanner/config"
)

func TestKey(t *testing.T) {
	prev := config.Cfg.RedisPrefix
	defer func() { config.Cfg.RedisPrefix = prev }()

	config.Cfg.RedisPrefix = ""
	if got := Key("feed", "", "first", "20"); got != "trip:feed:first:20" {
		t.Fatalf("Key() = %q", got)
	}

	config.Cfg.RedisPrefix = "staging"
	if got := Key("msg", "abc"); got != "staging:msg:abc" {
		t.Fatalf("Key() = %q", got)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := config.Config{RedisAddr: "cache:6379", RedisDB: 2}
	opts := clientOptions(&cfg)

	if opts.Addr != "cache:6379" || opts.DB != 2 {
		t.Fatalf("options = %+v", opts)
	}
	if opts.ReadTimeout >= 3*time.Second || opts.MaxRetries > 1 {
		t.Fatalf("cache reads should fail fast, got read timeout %v retries %d", opts.ReadTimeout, opts.MaxRetries)
	}
}
