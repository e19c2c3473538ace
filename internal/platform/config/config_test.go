package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.UploadExpiry != 300*time.Second {
		t.Errorf("Expected upload expiry 300s, got %v", cfg.Storage.UploadExpiry)
	}
	if cfg.Storage.Category != "delivery-dockets" {
		t.Errorf("Expected category delivery-dockets, got %s", cfg.Storage.Category)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Expected empty database url, got %s", cfg.Database.URL)
	}
	if cfg.Compliance.ChilledMax != 4 || cfg.Compliance.FrozenMax != -18 || cfg.Compliance.AmbientMax != 25 {
		t.Errorf("Unexpected compliance thresholds: %+v", cfg.Compliance)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
storage:
  backend: s3
  bucket: dockets-prod
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/docketflow")
	t.Setenv("EXTRACTION_DOCUMENTAI_PROCESSOR_ID", "proc-123")
	t.Setenv("LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "s3" || cfg.Storage.Bucket != "dockets-prod" {
		t.Errorf("Unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Database.URL != "postgres://localhost/docketflow" {
		t.Errorf("Expected database url from env, got %s", cfg.Database.URL)
	}
	if cfg.Extraction.DocumentAI.ProcessorID != "proc-123" {
		t.Errorf("Expected processor id from env, got %s", cfg.Extraction.DocumentAI.ProcessorID)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected env to override file level, got %s", cfg.Logging.Level)
	}
}
