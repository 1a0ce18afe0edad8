package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `
database:
  host: localhost
  port: "5432"
kafka:
  brokers:
    - localhost:9092
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Kafka.JobsTopic != "analysis-jobs" {
		t.Fatalf("unexpected jobs topic %s", cfg.Kafka.JobsTopic)
	}
	if cfg.Kafka.NotifyTopic != "analysis-notifications" {
		t.Fatalf("unexpected notify topic %s", cfg.Kafka.NotifyTopic)
	}
	if cfg.Kafka.WorkerGroup != "detection-workers" {
		t.Fatalf("unexpected worker group %s", cfg.Kafka.WorkerGroup)
	}
	if cfg.JWT.ExpiryHours != 24 {
		t.Fatalf("unexpected expiry hours %d", cfg.JWT.ExpiryHours)
	}
	if cfg.Detect.Timeout() != 300*time.Second {
		t.Fatalf("unexpected detector timeout %s", cfg.Detect.Timeout())
	}
}

func TestLoadConfigValuesAndEnvOverride(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "9000"
kafka:
  brokers:
    - broker-1:9092
    - broker-2:9092
  jobstopic: custom-jobs
detect:
  timeoutseconds: 60
`)

	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("GROQ_API_KEY", "gsk_test")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Server.Port != "7000" {
		t.Fatalf("env var must override the file, got %s", cfg.Server.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.JobsTopic != "custom-jobs" {
		t.Fatalf("unexpected jobs topic %s", cfg.Kafka.JobsTopic)
	}
	if cfg.Detect.GroqAPIKey != "gsk_test" {
		t.Fatal("groq key must come from the environment")
	}
	if cfg.Detect.Timeout() != 60*time.Second {
		t.Fatalf("unexpected detector timeout %s", cfg.Detect.Timeout())
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
