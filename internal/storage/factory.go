package storage

import (
	"fmt"
	"strings"
)

// StorageType selects the object storage backend.
type StorageType string

const (
	StorageTypeMinIO StorageType = "minio"
	StorageTypeS3    StorageType = "s3"
	StorageTypeR2    StorageType = "r2"
)

// Config holds configuration shared by all storage backends.
type Config struct {
	Type      StorageType
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	PublicURL string // public URL prefix for R2.dev or a CDN
}

// New creates an ObjectStorage for the configured backend. An empty type is
// detected from the endpoint.
func New(cfg *Config) (ObjectStorage, error) {
	if cfg.Type == "" {
		cfg.Type = detectStorageType(cfg.Endpoint)
	}

	switch cfg.Type {
	case StorageTypeMinIO:
		return NewMinIOStorage(cfg)
	case StorageTypeS3, StorageTypeR2:
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeMinIO
	}
}
