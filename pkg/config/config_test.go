// Copyright 2025 Certen Protocol
//
// Configuration loading tests

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_SECRET", "a-secret")
	t.Setenv("COORDINATOR_VERIFIER_KEY", "verifier-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate: %v", err)
	}

	if cfg.ListenAddr != ":8000" {
		t.Errorf("listen addr mismatch: got %s", cfg.ListenAddr)
	}
	if cfg.HealthPath != "." {
		t.Errorf("health path mismatch: got %s", cfg.HealthPath)
	}
	if cfg.UpdateInterval != 60*time.Second {
		t.Errorf("update interval mismatch: got %s", cfg.UpdateInterval)
	}
	if cfg.InitialReliability != 10 {
		t.Errorf("initial reliability mismatch: got %d", cfg.InitialReliability)
	}
	if cfg.DebugEndpoints {
		t.Error("debug endpoints must default to off")
	}
}

func TestLoad_Environment(t *testing.T) {
	setRequired(t)
	t.Setenv("AWS_S3_BUCKET", "ceremony-bucket")
	t.Setenv("AWS_S3_PROD", "true")
	t.Setenv("UPDATE_INTERVAL", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.S3Bucket != "ceremony-bucket" {
		t.Errorf("bucket mismatch: got %s", cfg.S3Bucket)
	}
	if !cfg.S3Production {
		t.Error("expected production mode")
	}
	if cfg.UpdateInterval != 5*time.Second {
		t.Errorf("update interval mismatch: got %s", cfg.UpdateInterval)
	}
}

func TestValidate_MissingSecret(t *testing.T) {
	t.Setenv("ACCESS_SECRET", "")
	t.Setenv("COORDINATOR_VERIFIER_KEY", "verifier-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation to fail without ACCESS_SECRET")
	}
	if !strings.Contains(err.Error(), "ACCESS_SECRET") {
		t.Errorf("expected the error to name ACCESS_SECRET: %v", err)
	}
}

func TestValidate_PresignBounds(t *testing.T) {
	setRequired(t)
	t.Setenv("PRESIGN_LIFETIME", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to reject a presign lifetime above 10m")
	}
}

func TestLoad_CeremonyFile(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "ceremony.yaml")
	content := "update_interval: 5s\nheartbeat_timeout: 30s\ndebug_endpoints: true\ninitial_reliability: 7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write ceremony file: %v", err)
	}
	t.Setenv("CEREMONY_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.UpdateInterval != 5*time.Second {
		t.Errorf("update interval mismatch: got %s", cfg.UpdateInterval)
	}
	if cfg.HeartbeatTimeout != 30*time.Second {
		t.Errorf("heartbeat timeout mismatch: got %s", cfg.HeartbeatTimeout)
	}
	if !cfg.DebugEndpoints {
		t.Error("expected debug endpoints to be enabled by the file")
	}
	if cfg.InitialReliability != 7 {
		t.Errorf("initial reliability mismatch: got %d", cfg.InitialReliability)
	}
}

func TestLoad_BadCeremonyFile(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "ceremony.yaml")
	if err := os.WriteFile(path, []byte("update_interval: [not a duration"), 0o644); err != nil {
		t.Fatalf("failed to write ceremony file: %v", err)
	}
	t.Setenv("CEREMONY_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a malformed ceremony file")
	}
}
