package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go-cosmic-inspector/internal/config"
)

func TestNewContainer_Local(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir() + "/outputs"
	cfg.Workers = 2

	c, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer c.Close()

	if _, err := os.Stat(cfg.OutputDir); err != nil {
		t.Errorf("Expected output dir to be created: %v", err)
	}
	if c.Config() != cfg {
		t.Error("Expected the given config to be kept")
	}
	if stats := c.Service().Stats(); stats.Storage != "local" || stats.WorkerPool.Workers != 2 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", w.Code)
	}
}

func TestNewContainer_UnsupportedStorage(t *testing.T) {
	cfg := config.Default()
	cfg.StorageBackend = "s3"

	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Error("Expected an error for an unsupported backend")
	}
}
