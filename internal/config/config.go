package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends for rendered images
const (
	StorageLocal = "local"
	StorageAzure = "azure"
)

type Config struct {
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	ImageFetchTimeout  time.Duration `yaml:"imageFetchTimeout"`
	MaxRequestBodySize int64         `yaml:"maxRequestBodySize"`
	LogLevel           string        `yaml:"logLevel"`

	// Image input
	MaxDimension      int      `yaml:"maxDimension"`
	AllowedImageHosts []string `yaml:"allowedImageHosts"`

	// Rendered output storage
	StorageBackend  string `yaml:"storageBackend"`
	OutputDir       string `yaml:"outputDir"`
	OutputURLPrefix string `yaml:"outputURLPrefix"`
	AzureAccount    string `yaml:"azureAccount"`
	AzureKey        string `yaml:"-"`
	AzureContainer  string `yaml:"azureContainer"`

	// Clustering
	KMeansInit           int    `yaml:"kmeansInit"`
	KMeansMaxIter        int    `yaml:"kmeansMaxIter"`
	RandomSeed           uint64 `yaml:"randomSeed"`
	SilhouetteSampleSize int    `yaml:"silhouetteSampleSize"`
	Workers              int    `yaml:"workers"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Host:                 "0.0.0.0",
		Port:                 "5000",
		RequestTimeout:       60 * time.Second,
		ImageFetchTimeout:    15 * time.Second,
		MaxRequestBodySize:   20 * 1024 * 1024, // 20MB
		LogLevel:             "info",
		MaxDimension:         512,
		StorageBackend:       StorageLocal,
		OutputDir:            "static/outputs",
		OutputURLPrefix:      "/static/outputs",
		AzureContainer:       "outputs",
		KMeansInit:           10,
		KMeansMaxIter:        300,
		RandomSeed:           0,
		SilhouetteSampleSize: 2000,
		Workers:              0,
	}
}

// LoadFromEnv resolves configuration from defaults, an optional YAML file
// named by CONFIG_FILE, and environment variables, in that order.
func LoadFromEnv() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ImageFetchTimeout = parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", cfg.ImageFetchTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.MaxDimension = int(parseIntOrDefault("MAX_DIMENSION", int64(cfg.MaxDimension)))
	cfg.AllowedImageHosts = parseListOrDefault("ALLOWED_IMAGE_HOSTS", cfg.AllowedImageHosts)
	cfg.StorageBackend = strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", cfg.StorageBackend))
	cfg.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.OutputDir)
	cfg.OutputURLPrefix = getEnvOrDefault("OUTPUT_URL_PREFIX", cfg.OutputURLPrefix)
	cfg.AzureAccount = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", cfg.AzureAccount)
	cfg.AzureKey = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.AzureKey)
	cfg.AzureContainer = getEnvOrDefault("AZURE_STORAGE_CONTAINER", cfg.AzureContainer)
	cfg.KMeansInit = int(parseIntOrDefault("KMEANS_N_INIT", int64(cfg.KMeansInit)))
	cfg.KMeansMaxIter = int(parseIntOrDefault("KMEANS_MAX_ITER", int64(cfg.KMeansMaxIter)))
	cfg.RandomSeed = uint64(parseIntOrDefault("RANDOM_SEED", int64(cfg.RandomSeed)))
	cfg.SilhouetteSampleSize = int(parseIntOrDefault("SILHOUETTE_SAMPLE_SIZE", int64(cfg.SilhouetteSampleSize)))
	cfg.Workers = int(parseIntOrDefault("WORKERS", int64(cfg.Workers)))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved configuration for unusable values
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s)",
			c.RequestTimeout, c.ImageFetchTimeout)
	}
	if c.MaxDimension <= 0 {
		return fmt.Errorf("MAX_DIMENSION must be > 0 (got %d)", c.MaxDimension)
	}
	if c.KMeansInit <= 0 || c.KMeansMaxIter <= 0 {
		return fmt.Errorf("KMEANS_N_INIT and KMEANS_MAX_ITER must be > 0 (got %d, %d)",
			c.KMeansInit, c.KMeansMaxIter)
	}
	switch c.StorageBackend {
	case StorageLocal:
		if strings.TrimSpace(c.OutputDir) == "" {
			return fmt.Errorf("OUTPUT_DIR is required for the local storage backend")
		}
	case StorageAzure:
		if c.AzureAccount == "" || c.AzureKey == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required for the azure storage backend")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND: %q", c.StorageBackend)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
