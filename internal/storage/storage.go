package storage

import (
	"context"
	"fmt"
	"time"

	"docstash/config"
)

// Storage is the single entry point to the active storage backend. Exactly
// one driver is resolved from configuration at startup; every call after
// that is pure delegation. Retries and metadata coordination belong to the
// attachment service, not here.
type Storage struct {
	driver Driver
}

// New resolves the active driver from cfg.Driver. An unknown driver name is
// a fatal configuration error surfaced at startup, not on first use.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	switch cfg.Driver {
	case DriverS3:
		d, err := NewS3Driver(ctx, S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing s3 driver: %w", err)
		}
		return &Storage{driver: d}, nil
	case DriverLocal:
		d, err := NewLocalDriver(cfg.LocalRoot, cfg.LocalBaseURL)
		if err != nil {
			return nil, fmt.Errorf("initializing local driver: %w", err)
		}
		return &Storage{driver: d}, nil
	case DriverMemory:
		return &Storage{driver: NewMemoryDriver()}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

func (s *Storage) Upload(ctx context.Context, filePath string, data []byte) error {
	return s.driver.Upload(ctx, filePath, data)
}

func (s *Storage) Read(ctx context.Context, filePath string) ([]byte, error) {
	return s.driver.Read(ctx, filePath)
}

func (s *Storage) Exists(ctx context.Context, filePath string) (bool, error) {
	return s.driver.Exists(ctx, filePath)
}

func (s *Storage) Delete(ctx context.Context, filePath string) error {
	return s.driver.Delete(ctx, filePath)
}

func (s *Storage) GetURL(filePath string) string {
	return s.driver.GetURL(filePath)
}

func (s *Storage) GetSignedURL(ctx context.Context, filePath string, expiresIn time.Duration) (string, error) {
	return s.driver.GetSignedURL(ctx, filePath, expiresIn)
}

func (s *Storage) Name() string {
	return s.driver.Name()
}

func (s *Storage) Config() map[string]string {
	return s.driver.Config()
}

// ActiveDriver exposes the resolved driver for callers that need raw
// backend access, e.g. type-asserting to *S3Driver for the native client.
func (s *Storage) ActiveDriver() Driver {
	return s.driver
}

var _ Driver = (*Storage)(nil)
