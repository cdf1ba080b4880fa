package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg := LoadConfig()
	if cfg.ServerPort != 8080 {
		t.Fatalf("expected fallback port 8080, got %d", cfg.ServerPort)
	}
	if cfg.StoreBackend != BackendPostgres {
		t.Fatalf("expected backend to be normalized, got %q", cfg.StoreBackend)
	}
	if cfg.MQ.Channel != "progress-events" {
		t.Fatalf("unexpected mq channel %q", cfg.MQ.Channel)
	}
}

func TestPostgresURL(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "blue",
		Password: "p@ss word",
		DBName:   "blueprint",
		UseSSL:   true,
	}}

	got := cfg.PostgresURL()
	want := "postgres://blue:p%40ss%20word@db:5433/blueprint?sslmode=require"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
