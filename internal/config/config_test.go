package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != "mongo" || cfg.Identity.Provider != "jwt" {
		t.Errorf("Unexpected drivers %s/%s", cfg.Store.Driver, cfg.Identity.Provider)
	}
	if cfg.Lifecycle.CommitAttempts != 3 || cfg.Lifecycle.OTPMaxAttempts != 5 || cfg.Lifecycle.OTPWindow != 10*time.Minute {
		t.Errorf("Unexpected lifecycle defaults %+v", cfg.Lifecycle)
	}
	if cfg.Redis.Enabled() {
		t.Error("Redis should be disabled without REDIS_HOST")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("OUTBOX_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("EMERGENCY_HOTLINE_NUMBERS", "+911234567890")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("Expected memory store, got %s", cfg.Store.Driver)
	}
	if len(cfg.Outbox.KafkaBrokers) != 2 || cfg.Outbox.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("Unexpected brokers %v", cfg.Outbox.KafkaBrokers)
	}
	if len(cfg.Emergency.HotlineNumbers) != 1 {
		t.Errorf("Unexpected hotline numbers %v", cfg.Emergency.HotlineNumbers)
	}
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"missing jwt secret": {},
		"unknown store":      {"JWT_SECRET": "s", "STORE_DRIVER": "postgres"},
		"unknown outbox":     {"JWT_SECRET": "s", "OUTBOX_DRIVER": "sqs"},
		"zero attempts":      {"JWT_SECRET": "s", "LIFECYCLE_COMMIT_ATTEMPTS": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Expected Load to fail")
			}
		})
	}
}
