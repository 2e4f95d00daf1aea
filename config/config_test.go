package config

import "testing"

func TestValidate(t *testing.T) {
	base := Config{
		JWTSecret:       "0123456789abcdef",
		FeedPageSize:    20,
		FeedMaxPageSize: 100,
	}

	t.Run("ok", func(t *testing.T) {
		c := base
		if err := c.Validate(); err != nil {
			t.Fatalf("Validate() = %v, want nil", err)
		}
	})

	t.Run("missing secret", func(t *testing.T) {
		c := base
		c.JWTSecret = ""
		if err := c.Validate(); err == nil {
			t.Fatal("expected error for empty JWT secret")
		}
	})

	t.Run("short secret", func(t *testing.T) {
		c := base
		c.JWTSecret = "short"
		if err := c.Validate(); err == nil {
			t.Fatal("expected error for short JWT secret")
		}
	})

	t.Run("page size out of range", func(t *testing.T) {
		c := base
		c.FeedPageSize = 101
		if err := c.Validate(); err == nil {
			t.Fatal("expected error for oversized feed page")
		}
	})
}

func TestGetDSN(t *testing.T) {
	c := Config{
		PostgreSQLHost:     "db",
		PostgreSQLPort:     "5432",
		PostgreSQLUser:     "u",
		PostgreSQLPassword: "p",
		PostgreSQLDatabase: "trips",
		PostgreSQLSSLMode:  "disable",
		PostgreSQLSchema:   "public",
	}
	want := "host=db port=5432 user=u password=p dbname=trips sslmode=disable search_path=public"
	if got := c.GetDSN(); got != want {
		t.Fatalf("GetDSN() = %q, want %q", got, want)
	}
}

func TestGetRabbitMQURL(t *testing.T) {
	c := Config{
		RabbitMQUsername: "guest",
		RabbitMQPassword: "guest",
		RabbitMQAddr:     "mq",
		RabbitMQPort:     "5672",
		RabbitMQVhost:    "/",
	}
	if got, want := c.GetRabbitMQURL(), "amqp://guest:guest@mq:5672/"; got != want {
		t.Fatalf("GetRabbitMQURL() = %q, want %q", got, want)
	}
}
