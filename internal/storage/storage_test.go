package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"docstash/config"
)

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown storage driver")
}

func TestNewSelectsLocalDriver(t *testing.T) {
	st, err := New(context.Background(), config.StorageConfig{
		Driver:    DriverLocal,
		LocalRoot: filepath.Join(t.TempDir(), "blobs"),
	})
	require.NoError(t, err)
	require.Equal(t, DriverLocal, st.Name())
}

func TestNewSelectsMemoryDriver(t *testing.T) {
	st, err := New(context.Background(), config.StorageConfig{Driver: DriverMemory})
	require.NoError(t, err)
	require.Equal(t, DriverMemory, st.Name())
}

func TestNewLocalDriverRequiresRoot(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: DriverLocal})
	require.Error(t, err)
}

func TestNewS3DriverRequiresRegionAndBucket(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: DriverS3})
	require.Error(t, err)
}

// The facade is pure delegation: drivers behind it must be interchangeable
// from the caller's perspective.
func TestFacadeDelegation(t *testing.T) {
	ctx := context.Background()

	st, err := New(ctx, config.StorageConfig{Driver: DriverMemory})
	require.NoError(t, err)

	require.NoError(t, st.Upload(ctx, "a/b.txt", []byte("delegated")))

	got, err := st.Read(ctx, "a/b.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("delegated"), got)

	ok, err := st.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, st.Delete(ctx, "a/b.txt"))

	ok, err = st.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, "memory://a/b.txt", st.GetURL("a/b.txt"))
	require.IsType(t, &MemoryDriver{}, st.ActiveDriver())
}
