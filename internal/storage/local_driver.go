package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalDriver stores objects as files under a root directory. The backend
// key maps directly onto the relative path below the root.
type LocalDriver struct {
	root    string
	baseURL string
}

func NewLocalDriver(root, baseURL string) (*LocalDriver, error) {
	if root == "" {
		return nil, errors.New("local storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return &LocalDriver{
		root:    abs,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (d *LocalDriver) Upload(ctx context.Context, filePath string, data []byte) error {
	dest, err := d.resolve("upload", filePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &Error{Op: "upload", Path: filePath, Kind: ErrIO, Err: err}
	}

	// Atomic write: temp file in the destination directory, then rename.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return &Error{Op: "upload", Path: filePath, Kind: ErrIO, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &Error{Op: "upload", Path: filePath, Kind: ErrIO, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &Error{Op: "upload", Path: filePath, Kind: ErrIO, Err: err}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return &Error{Op: "upload", Path: filePath, Kind: ErrIO, Err: err}
	}
	return nil
}

func (d *LocalDriver) Read(ctx context.Context, filePath string) ([]byte, error) {
	src, err := d.resolve("read", filePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Op: "read", Path: filePath, Kind: ErrNotFound}
		}
		return nil, &Error{Op: "read", Path: filePath, Kind: ErrIO, Err: err}
	}
	return data, nil
}

func (d *LocalDriver) Exists(ctx context.Context, filePath string) (bool, error) {
	src, err := d.resolve("exists", filePath)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &Error{Op: "exists", Path: filePath, Kind: ErrIO, Err: err}
	}
	return true, nil
}

func (d *LocalDriver) Delete(ctx context.Context, filePath string) error {
	src, err := d.resolve("delete", filePath)
	if err != nil {
		return err
	}
	if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
		return &Error{Op: "delete", Path: filePath, Kind: ErrIO, Err: err}
	}
	return nil
}

func (d *LocalDriver) GetURL(filePath string) string {
	if d.baseURL == "" {
		return "file://" + filepath.Join(d.root, filepath.FromSlash(filePath))
	}
	return d.baseURL + "/" + filePath
}

func (d *LocalDriver) GetSignedURL(ctx context.Context, filePath string, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		return "", &Error{Op: "signed_url", Path: filePath, Kind: ErrInvalidExpiry}
	}
	return "", &Error{Op: "signed_url", Path: filePath, Kind: ErrUnsupported}
}

func (d *LocalDriver) Name() string {
	return DriverLocal
}

func (d *LocalDriver) Config() map[string]string {
	return map[string]string{
		"driver":   DriverLocal,
		"root":     d.root,
		"base_url": d.baseURL,
	}
}

// resolve maps a backend key to an absolute path and rejects keys that
// would escape the storage root.
func (d *LocalDriver) resolve(op, filePath string) (string, error) {
	if filePath == "" {
		return "", &Error{Op: op, Path: filePath, Kind: ErrIO, Err: errors.New("empty file path")}
	}
	dest := filepath.Join(d.root, filepath.FromSlash(filePath))
	if dest != d.root && !strings.HasPrefix(dest, d.root+string(os.PathSeparator)) {
		return "", &Error{Op: op, Path: filePath, Kind: ErrIO, Err: errors.New("path escapes storage root")}
	}
	return dest, nil
}

var _ Driver = (*LocalDriver)(nil)
