package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("Expected default port 5000, got %s", cfg.Port)
	}
	if cfg.MaxDimension != 512 {
		t.Errorf("Expected MaxDimension 512, got %d", cfg.MaxDimension)
	}
	if cfg.KMeansInit != 10 || cfg.KMeansMaxIter != 300 {
		t.Errorf("Unexpected k-means defaults: init=%d iter=%d", cfg.KMeansInit, cfg.KMeansMaxIter)
	}
	if cfg.SilhouetteSampleSize != 2000 {
		t.Errorf("Expected sample size 2000, got %d", cfg.SilhouetteSampleSize)
	}
	if cfg.StorageBackend != StorageLocal {
		t.Errorf("Expected local storage, got %s", cfg.StorageBackend)
	}
	if cfg.ServerAddress() != "0.0.0.0:5000" {
		t.Errorf("Unexpected server address %s", cfg.ServerAddress())
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("MAX_DIMENSION", "256")
	t.Setenv("RANDOM_SEED", "42")
	t.Setenv("STORAGE_BACKEND", "LOCAL")
	t.Setenv("ALLOWED_IMAGE_HOSTS", " images.nasa.gov, ,*.esa.int")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.MaxDimension != 256 {
		t.Errorf("Expected MaxDimension 256, got %d", cfg.MaxDimension)
	}
	if cfg.RandomSeed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.RandomSeed)
	}
	if cfg.StorageBackend != StorageLocal {
		t.Errorf("Expected backend to be lowercased, got %s", cfg.StorageBackend)
	}
	if len(cfg.AllowedImageHosts) != 2 || cfg.AllowedImageHosts[0] != "images.nasa.gov" || cfg.AllowedImageHosts[1] != "*.esa.int" {
		t.Errorf("Unexpected allowed hosts %q", cfg.AllowedImageHosts)
	}
}

func TestLoadFromEnv_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cosmic.yaml")
	content := "port: \"7000\"\nmaxDimension: 128\nkmeansInit: 4\nrequestTimeout: 45s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("KMEANS_N_INIT", "6")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Port != "7000" {
		t.Errorf("Expected port from file, got %s", cfg.Port)
	}
	if cfg.MaxDimension != 128 {
		t.Errorf("Expected MaxDimension from file, got %d", cfg.MaxDimension)
	}
	if cfg.KMeansInit != 6 {
		t.Errorf("Expected env to win over file, got %d", cfg.KMeansInit)
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("Expected 45s from file, got %s", cfg.RequestTimeout)
	}
}

func TestLoadFromEnv_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = "http" }, "invalid PORT"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid PORT"},
		{"zero body", func(c *Config) { c.MaxRequestBodySize = 0 }, "MAX_REQUEST_BODY_SIZE"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "timeouts"},
		{"zero dimension", func(c *Config) { c.MaxDimension = 0 }, "MAX_DIMENSION"},
		{"zero init", func(c *Config) { c.KMeansInit = 0 }, "KMEANS_N_INIT"},
		{"unknown backend", func(c *Config) { c.StorageBackend = "s3" }, "unsupported STORAGE_BACKEND"},
		{"azure without key", func(c *Config) { c.StorageBackend = StorageAzure; c.AzureAccount = "acct" }, "AZURE_STORAGE_KEY"},
		{"azure complete", func(c *Config) {
			c.StorageBackend = StorageAzure
			c.AzureAccount = "acct"
			c.AzureKey = "a2V5"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
