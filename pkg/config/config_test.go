package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `environment: test
server:
  port: 8081
  read_timeout: 5s
  write_timeout: 5s
  shutdown_timeout: 10s
log:
  level: info
  format: console
  output: stdout
auth:
  api_token: test-token
generation:
  model: gemini-2.0-flash
  temperature: 0.2
embedding:
  provider: local
  dimensions: 64
knowledge:
  dir: /tmp/knowledge
assets:
  catalog_path: config/assets.yaml
sources:
  timeout: 8s
  rate_limit:
    capacity: 5
    refill_per_sec: 1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Sources.Timeout != 8*time.Second {
		t.Fatalf("timeout = %v", cfg.Sources.Timeout)
	}
	if cfg.KafkaEnabled() {
		t.Fatal("kafka should be disabled without brokers")
	}
}

func TestLoadMissingToken(t *testing.T) {
	bad := strings.Replace(validYAML, "api_token: test-token", `api_token: ""`, 1)
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadBadEmbeddingProvider(t *testing.T) {
	bad := strings.Replace(validYAML, "provider: local", "provider: faiss", 1)
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadAuditRequiresHost(t *testing.T) {
	bad := validYAML + "audit:\n  enabled: true\n"
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("GENAI_API_KEY", "env-key")
	t.Setenv("API_TOKEN", "env-token")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Generation.APIKey != "env-key" {
		t.Fatalf("generation key = %q", cfg.Generation.APIKey)
	}
	if cfg.Embedding.APIKey != "env-key" {
		t.Fatalf("embedding key should inherit: %q", cfg.Embedding.APIKey)
	}
	if cfg.Auth.APIToken != "env-token" {
		t.Fatalf("token = %q", cfg.Auth.APIToken)
	}
	if len(cfg.Kafka.Brokers) != 2 || !cfg.KafkaEnabled() {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
}
