package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"time"
)

// Registered driver names.
const (
	DriverS3     = "s3"
	DriverLocal  = "local"
	DriverMemory = "memory"
)

// Error kinds. Callers branch with errors.Is.
var (
	ErrNotFound      = errors.New("object not found")
	ErrUnsupported   = errors.New("operation not supported by driver")
	ErrInvalidExpiry = errors.New("expiry must be positive")
	ErrIO            = errors.New("storage backend failure")
)

// Driver is the capability set every storage backend implements.
// filePath is a backend-relative key; the same key addresses the same
// logical object on every backend. Implementations must be safe for
// concurrent use.
type Driver interface {
	// Upload writes data under filePath, overwriting any existing object.
	// The content type is derived from the path's extension.
	Upload(ctx context.Context, filePath string, data []byte) error

	// Read returns the full object content. Read is a buffered fetch: the
	// whole object is materialized in memory before returning.
	Read(ctx context.Context, filePath string) ([]byte, error)

	// Exists reports whether the object is present. Absence is reported as
	// (false, nil), never as an error.
	Exists(ctx context.Context, filePath string) (bool, error)

	// Delete removes the object. Deleting an absent object is not an error.
	Delete(ctx context.Context, filePath string) error

	// GetURL returns a stable, non-expiring locator for the object. The URL
	// is not guaranteed to be publicly fetchable.
	GetURL(filePath string) string

	// GetSignedURL returns a time-limited capability URL. Backends without
	// signing support fail with ErrUnsupported.
	GetSignedURL(ctx context.Context, filePath string, expiresIn time.Duration) (string, error)

	// Name returns the stable backend tag used for diagnostics.
	Name() string

	// Config returns a read-only view of the backend configuration with
	// credentials redacted.
	Config() map[string]string
}

// Error is a structured storage error carrying the failed operation, the
// object key and an error kind that callers can match with errors.Is.
type Error struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %s %q: %v: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Path, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// contentTypeFor resolves a content type from the path's extension, falling
// back to a generic binary type for unknown extensions.
func contentTypeFor(filePath string) string {
	if ct := mime.TypeByExtension(path.Ext(filePath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
