package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryDriver is a map-backed implementation of the Driver contract. It is
// used by the test suites and can be selected as the active backend for
// throwaway deployments. Safe for concurrent use.
type MemoryDriver struct {
	mu      sync.RWMutex
	objects map[string][]byte
	now     func() time.Time
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		objects: make(map[string][]byte),
		now:     time.Now,
	}
}

// NewMemoryDriverWithClock creates a memory driver with an injected clock,
// so signed URL expiries can be asserted deterministically.
func NewMemoryDriverWithClock(now func() time.Time) *MemoryDriver {
	d := NewMemoryDriver()
	d.now = now
	return d
}

func (d *MemoryDriver) Upload(ctx context.Context, filePath string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	d.objects[filePath] = buf
	return nil
}

func (d *MemoryDriver) Read(ctx context.Context, filePath string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	data, ok := d.objects[filePath]
	if !ok {
		return nil, &Error{Op: "read", Path: filePath, Kind: ErrNotFound}
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (d *MemoryDriver) Exists(ctx context.Context, filePath string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.objects[filePath]
	return ok, nil
}

func (d *MemoryDriver) Delete(ctx context.Context, filePath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.objects, filePath)
	return nil
}

func (d *MemoryDriver) GetURL(filePath string) string {
	return "memory://" + filePath
}

func (d *MemoryDriver) GetSignedURL(ctx context.Context, filePath string, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		return "", &Error{Op: "signed_url", Path: filePath, Kind: ErrInvalidExpiry}
	}
	expires := d.now().Add(expiresIn).Unix()
	return fmt.Sprintf("memory://%s?expires=%d", filePath, expires), nil
}

// SignedURLValid reports whether a URL produced by GetSignedURL is still
// within its expiry window.
func (d *MemoryDriver) SignedURLValid(signedURL string) bool {
	parsed, err := url.Parse(signedURL)
	if err != nil {
		return false
	}
	var expires int64
	if _, err := fmt.Sscanf(parsed.Query().Get("expires"), "%d", &expires); err != nil {
		return false
	}
	return d.now().Unix() < expires
}

func (d *MemoryDriver) Name() string {
	return DriverMemory
}

func (d *MemoryDriver) Config() map[string]string {
	return map[string]string{"driver": DriverMemory}
}

var _ Driver = (*MemoryDriver)(nil)
