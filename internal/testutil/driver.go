package testutil

import (
	"context"

	"docstash/internal/storage"
)

// FlakyDriver wraps a Driver and injects failures per operation. Calls are
// counted so tests can assert that compensating actions were attempted.
type FlakyDriver struct {
	storage.Driver

	UploadErr error
	DeleteErr error

	DeleteCalls int
}

func NewFlakyDriver(inner storage.Driver) *FlakyDriver {
	return &FlakyDriver{Driver: inner}
}

func (d *FlakyDriver) Upload(ctx context.Context, filePath string, data []byte) error {
	if d.UploadErr != nil {
		return d.UploadErr
	}
	return d.Driver.Upload(ctx, filePath, data)
}

func (d *FlakyDriver) Delete(ctx context.Context, filePath string) error {
	d.DeleteCalls++
	if d.DeleteErr != nil {
		return d.DeleteErr
	}
	return d.Driver.Delete(ctx, filePath)
}

var _ storage.Driver = (*FlakyDriver)(nil)
