package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"docstash/internal/domain/attachment"
	"docstash/internal/storage"
	"docstash/internal/testutil"
	docstash_errors "docstash/pkg/errors"
)

func newTestService(t *testing.T) (*AttachmentService, *testutil.AttachmentRepo, *storage.MemoryDriver) {
	t.Helper()
	repo := testutil.NewAttachmentRepo()
	driver := storage.NewMemoryDriver()
	return NewAttachmentService(repo, driver, nil, 10<<20), repo, driver
}

func TestUploadFetchDeleteLifecycle(t *testing.T) {
	svc, _, driver := newTestService(t)
	ctx := context.Background()

	creator := uuid.New()
	page := uuid.New()
	payload := make([]byte, 2048)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	created, err := svc.Upload(ctx, UploadInput{
		FileName:  "plan.pdf",
		Type:      "page-attachment",
		Data:      payload,
		CreatorID: creator,
		PageID:    &page,
	})
	require.NoError(t, err)
	require.Equal(t, "pdf", created.FileExt)
	require.NotNil(t, created.FileSize)
	require.Equal(t, int64(2048), *created.FileSize)
	require.Nil(t, created.DeletedAt)
	require.Equal(t, creator, created.CreatorID)
	require.NotNil(t, created.MimeType)
	require.Contains(t, *created.MimeType, "application/pdf")
	require.True(t, strings.HasPrefix(created.FilePath, "attachments/"+creator.String()+"/"))

	ok, err := driver.Exists(ctx, created.FilePath)
	require.NoError(t, err)
	require.True(t, ok)

	// direct fetch returns the exact uploaded bytes
	result, err := svc.Fetch(ctx, created.ID, FetchDirect, 0)
	require.NoError(t, err)
	require.Equal(t, payload, result.Data)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Fetch(ctx, created.ID, FetchDirect, 0)
	require.ErrorIs(t, err, docstash_errors.ErrNotFound)

	ok, err = driver.Exists(ctx, created.FilePath)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUploadValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{FileName: "a.txt", Data: []byte("x")})
	require.ErrorIs(t, err, docstash_errors.ErrInvalidInput)

	_, err = svc.Upload(ctx, UploadInput{CreatorID: uuid.New(), Data: []byte("x")})
	require.ErrorIs(t, err, docstash_errors.ErrInvalidInput)
}

func TestUploadRejectsOversizedPayload(t *testing.T) {
	repo := testutil.NewAttachmentRepo()
	svc := NewAttachmentService(repo, storage.NewMemoryDriver(), nil, 16)

	_, err := svc.Upload(context.Background(), UploadInput{
		FileName:  "big.bin",
		Data:      make([]byte, 17),
		CreatorID: uuid.New(),
	})
	require.ErrorIs(t, err, docstash_errors.ErrTooLarge)
}

func TestUploadAbortsWhenBlobWriteFails(t *testing.T) {
	repo := testutil.NewAttachmentRepo()
	driver := testutil.NewFlakyDriver(storage.NewMemoryDriver())
	driver.UploadErr = &storage.Error{Op: "upload", Path: "x", Kind: storage.ErrIO, Err: errors.New("connection reset")}
	svc := NewAttachmentService(repo, driver, nil, 0)

	creator := uuid.New()
	_, err := svc.Upload(context.Background(), UploadInput{
		FileName:  "a.txt",
		Data:      []byte("x"),
		CreatorID: creator,
	})
	require.ErrorIs(t, err, storage.ErrIO)

	// no metadata row may exist for the failed upload
	items, _, listErr := repo.GetByCreator(context.Background(), creator, 1, 10)
	require.NoError(t, listErr)
	require.Empty(t, items)
}

func TestUploadCompensatesWhenMetadataInsertFails(t *testing.T) {
	repo := testutil.NewAttachmentRepo()
	repo.CreateErr = errors.New("metadata store unavailable")
	inner := storage.NewMemoryDriver()
	driver := testutil.NewFlakyDriver(inner)
	svc := NewAttachmentService(repo, driver, nil, 0)

	_, err := svc.Upload(context.Background(), UploadInput{
		FileName:  "a.txt",
		Data:      []byte("orphan candidate"),
		CreatorID: uuid.New(),
	})
	require.EqualError(t, err, "metadata store unavailable")

	// the just-written blob must have been cleaned up
	require.Equal(t, 1, driver.DeleteCalls)
}

func TestDeleteIsVisibleEvenWhenBlobDeleteFails(t *testing.T) {
	repo := testutil.NewAttachmentRepo()
	driver := testutil.NewFlakyDriver(storage.NewMemoryDriver())
	svc := NewAttachmentService(repo, driver, nil, 0)
	ctx := context.Background()

	created, err := svc.Upload(ctx, UploadInput{
		FileName:  "doc.txt",
		Data:      []byte("content"),
		CreatorID: uuid.New(),
	})
	require.NoError(t, err)

	driver.DeleteErr = &storage.Error{Op: "delete", Path: created.FilePath, Kind: storage.ErrIO, Err: errors.New("timeout")}

	// soft delete succeeds regardless of the blob delete outcome
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Fetch(ctx, created.ID, FetchDirect, 0)
	require.ErrorIs(t, err, docstash_errors.ErrNotFound)

	// row is retained soft-deleted for reconciliation
	raw, ok := repo.Raw(created.ID)
	require.True(t, ok)
	require.NotNil(t, raw.DeletedAt)
}

func TestFetchSignedMode(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Upload(ctx, UploadInput{
		FileName:  "img.png",
		Data:      []byte{0x89},
		CreatorID: uuid.New(),
	})
	require.NoError(t, err)

	result, err := svc.Fetch(ctx, created.ID, FetchSigned, time.Hour)
	require.NoError(t, err)
	require.Contains(t, result.SignedURL, created.FilePath)

	_, err = svc.Fetch(ctx, created.ID, FetchSigned, 0)
	require.ErrorIs(t, err, docstash_errors.ErrInvalidInput)

	_, err = svc.Fetch(ctx, created.ID, "streamed", time.Hour)
	require.ErrorIs(t, err, docstash_errors.ErrInvalidInput)
}

func TestConcurrentUploadsDoNotInterfere(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	creator := uuid.New()

	const n = 16
	ids := make([]uuid.UUID, n)
	payloads := make([][]byte, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payloads[i] = []byte(fmt.Sprintf("payload-%d", i))
			created, err := svc.Upload(ctx, UploadInput{
				FileName:  fmt.Sprintf("file-%d.txt", i),
				Data:      payloads[i],
				CreatorID: creator,
			})
			errs[i] = err
			ids[i] = created.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}

	// every upload got a distinct derived path and is independently readable
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		result, err := svc.Fetch(ctx, ids[i], FetchDirect, 0)
		require.NoError(t, err)
		require.Equal(t, payloads[i], result.Data)
		require.False(t, seen[result.Attachment.FilePath])
		seen[result.Attachment.FilePath] = true
	}
}

func TestUpdateAssociations(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Upload(ctx, UploadInput{
		FileName:  "notes.md",
		Data:      []byte("# notes"),
		CreatorID: uuid.New(),
	})
	require.NoError(t, err)
	require.Nil(t, created.PageID)

	page := uuid.New()
	space := uuid.New()
	updated, err := svc.UpdateAssociations(ctx, created.ID, attachment.Associations{
		PageID:  &page,
		SpaceID: &space,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.PageID)
	require.Equal(t, page, *updated.PageID)
	require.NotNil(t, updated.SpaceID)
	require.Equal(t, space, *updated.SpaceID)
	// creator never changes after creation
	require.Equal(t, created.CreatorID, updated.CreatorID)

	_, err = svc.UpdateAssociations(ctx, uuid.New(), attachment.Associations{PageID: &page})
	require.ErrorIs(t, err, docstash_errors.ErrNotFound)
}

func TestPurgeRemovesSoftDeletedRowsAndBlobs(t *testing.T) {
	svc, repo, driver := newTestService(t)
	ctx := context.Background()

	created, err := svc.Upload(ctx, UploadInput{
		FileName:  "old.txt",
		Data:      []byte("stale"),
		CreatorID: uuid.New(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	// Delete already removed the blob; recreate it to simulate a blob
	// delete that failed at deletion time.
	require.NoError(t, driver.Upload(ctx, created.FilePath, []byte("stale")))

	purged, err := svc.Purge(ctx, -time.Second, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)

	_, ok := repo.Raw(created.ID)
	require.False(t, ok)

	exists, err := driver.Exists(ctx, created.FilePath)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestStorageInfoEchoesDriver(t *testing.T) {
	svc, _, _ := newTestService(t)
	name, cfg := svc.StorageInfo()
	require.Equal(t, storage.DriverMemory, name)
	require.Equal(t, storage.DriverMemory, cfg["driver"])
}
