// Copyright 2025 Certen Protocol
//
// Configuration for the trusted-setup ceremony coordinator.
// Loaded from environment variables at startup, with optional timing
// overrides from a ceremony YAML file.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the ceremony coordinator service
type Config struct {
	// Server Configuration
	ListenAddr string
	HealthPath string

	// Access control
	AccessSecret string

	// VerifierKey is the public key of the coordinator's own verifier,
	// authorized for administrative endpoints
	VerifierKey string

	// Object Store Configuration
	S3Bucket     string
	S3Region     string
	S3Endpoint   string // Custom endpoint for local stacks (e.g. http://localhost:4566)
	S3Production bool   // Selects the production/ prefix for the token archive

	// Token archive paths
	TokensPath    string // Extraction directory for the cohort token files
	TokensZipFile string // Local path of the compressed token archive

	// Coordinator storage
	StoragePath string // Root directory for round artifacts and ceremony state

	// Ceremony timing
	UpdateInterval   time.Duration // Periodic driver tick
	HeartbeatTimeout time.Duration // Absence of heartbeat before a participant is dropped
	PresignLifetime  time.Duration // Lifetime of presigned object-store URLs
	CohortDuration   time.Duration // Width of one cohort window

	// Queue policy
	InitialReliability uint8

	// Debug endpoints (/update, /verify) are only mounted when true
	DebugEndpoints bool
}

// ceremonyFile mirrors the optional ceremony.yaml overrides
type ceremonyFile struct {
	UpdateInterval     string `yaml:"update_interval"`
	HeartbeatTimeout   string `yaml:"heartbeat_timeout"`
	PresignLifetime    string `yaml:"presign_lifetime"`
	CohortDuration     string `yaml:"cohort_duration"`
	InitialReliability *uint8 `yaml:"initial_reliability"`
	DebugEndpoints     *bool  `yaml:"debug_endpoints"`
}

// Load builds the configuration from the process environment. The optional
// CEREMONY_CONFIG file is applied on top of the environment values.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8000"),
		HealthPath: getEnv("HEALTH_PATH", "."),

		AccessSecret: os.Getenv("ACCESS_SECRET"),
		VerifierKey:  os.Getenv("COORDINATOR_VERIFIER_KEY"),

		S3Bucket:     getEnv("AWS_S3_BUCKET", "bucket"),
		S3Region:     getEnv("AWS_REGION", "eu-west-1"),
		S3Endpoint:   getEnv("AWS_S3_ENDPOINT", ""),
		S3Production: getEnvBool("AWS_S3_PROD", false),

		TokensPath:    getEnv("TOKENS_PATH", "./tokens"),
		TokensZipFile: getEnv("TOKENS_ZIP_FILE", "./tokens.zip"),

		StoragePath: getEnv("STORAGE_PATH", "./ceremony"),

		UpdateInterval:   getEnvDuration("UPDATE_INTERVAL", 60*time.Second),
		HeartbeatTimeout: getEnvDuration("HEARTBEAT_TIMEOUT", 120*time.Second),
		PresignLifetime:  getEnvDuration("PRESIGN_LIFETIME", 10*time.Minute),
		CohortDuration:   getEnvDuration("COHORT_DURATION", 24*time.Hour),

		InitialReliability: uint8(getEnvInt("INITIAL_RELIABILITY", 10)),

		DebugEndpoints: getEnvBool("DEBUG_ENDPOINTS", false),
	}

	if path := os.Getenv("CEREMONY_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("loading ceremony config %s: %w", path, err)
		}
	}

	return cfg, nil
}

// applyFile overlays the YAML overrides onto the config
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file ceremonyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	if file.UpdateInterval != "" {
		if c.UpdateInterval, err = time.ParseDuration(file.UpdateInterval); err != nil {
			return fmt.Errorf("update_interval: %w", err)
		}
	}
	if file.HeartbeatTimeout != "" {
		if c.HeartbeatTimeout, err = time.ParseDuration(file.HeartbeatTimeout); err != nil {
			return fmt.Errorf("heartbeat_timeout: %w", err)
		}
	}
	if file.PresignLifetime != "" {
		if c.PresignLifetime, err = time.ParseDuration(file.PresignLifetime); err != nil {
			return fmt.Errorf("presign_lifetime: %w", err)
		}
	}
	if file.CohortDuration != "" {
		if c.CohortDuration, err = time.ParseDuration(file.CohortDuration); err != nil {
			return fmt.Errorf("cohort_duration: %w", err)
		}
	}
	if file.InitialReliability != nil {
		c.InitialReliability = *file.InitialReliability
	}
	if file.DebugEndpoints != nil {
		c.DebugEndpoints = *file.DebugEndpoints
	}

	return nil
}

// Validate checks that all required configuration is present.
// This must be called after Load() before starting the service.
func (c *Config) Validate() error {
	var errors []string

	if c.AccessSecret == "" {
		errors = append(errors, "ACCESS_SECRET is required but not set")
	}
	if c.VerifierKey == "" {
		errors = append(errors, "COORDINATOR_VERIFIER_KEY is required but not set")
	}
	if c.S3Bucket == "" {
		errors = append(errors, "AWS_S3_BUCKET is required but not set")
	}
	if c.UpdateInterval <= 0 {
		errors = append(errors, "UPDATE_INTERVAL must be positive")
	}
	if c.HeartbeatTimeout <= 0 {
		errors = append(errors, "HEARTBEAT_TIMEOUT must be positive")
	}
	if c.PresignLifetime < 5*time.Minute || c.PresignLifetime > 10*time.Minute {
		errors = append(errors, "PRESIGN_LIFETIME must be between 5m and 10m")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
