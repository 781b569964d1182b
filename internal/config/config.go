package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries server settings plus the optional external collaborators.
// Every optional service resolves to a capability flag once at load time;
// the pipeline never re-checks the environment.
type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ScanTimeout        time.Duration
	ExternalTimeout    time.Duration
	MaxRequestBodySize int64
	MaxBatchSize       int

	// Local OCR
	OCRLanguage string

	// Remote QR decoding service (goQR.me-compatible). Empty endpoint
	// disables the decoder.
	RemoteQREndpoint string

	// External vision OCR engine. Unavailable without an API key for the
	// whole process lifetime.
	VisionEndpoint string
	VisionAPIKey   string

	// Persistence (optional)
	MongoURI      string
	MongoDatabase string

	// Upload archive (optional)
	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// RemoteQREnabled reports whether the external QR decoding service is
// configured.
func (c *Config) RemoteQREnabled() bool {
	return strings.TrimSpace(c.RemoteQREndpoint) != ""
}

// VisionEnabled reports whether the external vision OCR engine is configured.
func (c *Config) VisionEnabled() bool {
	return strings.TrimSpace(c.VisionAPIKey) != "" && strings.TrimSpace(c.VisionEndpoint) != ""
}

// PersistenceEnabled reports whether a document store is configured.
func (c *Config) PersistenceEnabled() bool {
	return strings.TrimSpace(c.MongoURI) != ""
}

// ArchiveEnabled reports whether uploaded images are archived to blob
// storage.
func (c *Config) ArchiveEnabled() bool {
	return strings.TrimSpace(c.AzureAccountName) != "" &&
		strings.TrimSpace(c.AzureAccountKey) != "" &&
		strings.TrimSpace(c.AzureContainer) != ""
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ScanTimeout:        parseDurationOrDefault("SCAN_TIMEOUT", 20*time.Second),
		ExternalTimeout:    parseDurationOrDefault("EXTERNAL_TIMEOUT", 5*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MaxBatchSize:       int(parseIntOrDefault("MAX_BATCH_SIZE", 10)),
		OCRLanguage:        getEnvOrDefault("OCR_LANGUAGE", "eng"),
		RemoteQREndpoint:   getEnvOrDefault("REMOTE_QR_ENDPOINT", "https://api.qrserver.com/v1/read-qr-code/"),
		VisionEndpoint:     getEnvOrDefault("VISION_ENDPOINT", "https://vision.googleapis.com/v1/images:annotate"),
		VisionAPIKey:       os.Getenv("VISION_API_KEY"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDatabase:      getEnvOrDefault("MONGO_DATABASE", "card_scanner"),
		AzureAccountName:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:    os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer:     os.Getenv("AZURE_STORAGE_CONTAINER"),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.MaxBatchSize < 1 {
		return nil, fmt.Errorf("MAX_BATCH_SIZE must be >= 1 (got %d)", cfg.MaxBatchSize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ScanTimeout <= 0 || cfg.ExternalTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, scan=%s, external=%s)",
			cfg.RequestTimeout, cfg.ScanTimeout, cfg.ExternalTimeout)
	}
	return cfg, nil
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
