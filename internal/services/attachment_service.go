package services

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"docstash/internal/domain/attachment"
	"docstash/internal/repository"
	"docstash/internal/storage"
	docstash_errors "docstash/pkg/errors"
	"docstash/pkg/logger"
)

// AttachmentService orchestrates the two-phase attachment lifecycle across
// the blob store and the metadata store. No transaction spans both: the
// ordered protocols below guarantee that a metadata row is never visible
// before its blob exists, and never visible after deletion even when the
// blob delete is delayed.
type AttachmentService struct {
	repo           repository.AttachmentRepository
	storage        storage.Driver
	logger         *logger.Logger
	maxUploadBytes int64
}

func NewAttachmentService(repo repository.AttachmentRepository, st storage.Driver, l *logger.Logger, maxUploadBytes int64) *AttachmentService {
	return &AttachmentService{
		repo:           repo,
		storage:        st,
		logger:         l,
		maxUploadBytes: maxUploadBytes,
	}
}

type UploadInput struct {
	FileName    string
	Type        string
	Data        []byte
	CreatorID   uuid.UUID
	PageID      *uuid.UUID
	SpaceID     *uuid.UUID
	WorkspaceID *uuid.UUID
}

type FetchMode string

const (
	FetchDirect FetchMode = "direct"
	FetchSigned FetchMode = "signed"
)

type FetchResult struct {
	Attachment attachment.Attachment
	Data       []byte
	SignedURL  string
}

// Upload writes the blob first and inserts the metadata row only after the
// blob is confirmed present. A metadata insert failure triggers a
// best-effort compensating delete of the just-written blob; when that also
// fails the orphan is logged for reconciliation instead of silently leaked.
func (s *AttachmentService) Upload(ctx context.Context, input UploadInput) (attachment.Attachment, error) {
	if input.CreatorID == uuid.Nil || input.FileName == "" {
		return attachment.Attachment{}, docstash_errors.ErrInvalidInput
	}
	if s.maxUploadBytes > 0 && int64(len(input.Data)) > s.maxUploadBytes {
		return attachment.Attachment{}, docstash_errors.ErrTooLarge
	}

	// The key is derived from a fresh id before any I/O, so it is known and
	// stable regardless of outcome, and concurrent uploads never collide.
	id := uuid.New()
	ext := strings.ToLower(path.Ext(input.FileName))
	filePath := buildFilePath(input.CreatorID, id, ext)

	if err := s.storage.Upload(ctx, filePath, input.Data); err != nil {
		return attachment.Attachment{}, err
	}

	now := time.Now()
	size := int64(len(input.Data))
	a := attachment.Attachment{
		ID:          id,
		FileName:    input.FileName,
		FilePath:    filePath,
		FileSize:    &size,
		FileExt:     strings.TrimPrefix(ext, "."),
		MimeType:    mimeTypeFor(ext),
		CreatorID:   input.CreatorID,
		PageID:      input.PageID,
		SpaceID:     input.SpaceID,
		WorkspaceID: input.WorkspaceID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Type != "" {
		t := input.Type
		a.Type = &t
	}

	if err := s.repo.Create(ctx, &a); err != nil {
		if delErr := s.storage.Delete(ctx, filePath); delErr != nil && s.logger != nil {
			s.logger.Errorf("orphaned blob %s requires reconciliation: insert failed (%s), compensating delete failed (%s)", filePath, err, delErr)
		}
		return attachment.Attachment{}, err
	}
	return a, nil
}

// Fetch resolves the metadata row, rejecting absent or soft-deleted
// attachments, then serves the blob directly or via a signed URL.
func (s *AttachmentService) Fetch(ctx context.Context, id uuid.UUID, mode FetchMode, expiresIn time.Duration) (FetchResult, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return FetchResult{}, err
	}

	switch mode {
	case FetchDirect:
		data, err := s.storage.Read(ctx, a.FilePath)
		if err != nil {
			return FetchResult{}, err
		}
		return FetchResult{Attachment: a, Data: data}, nil
	case FetchSigned:
		if expiresIn <= 0 {
			return FetchResult{}, docstash_errors.ErrInvalidInput
		}
		url, err := s.storage.GetSignedURL(ctx, a.FilePath, expiresIn)
		if err != nil {
			return FetchResult{}, err
		}
		return FetchResult{Attachment: a, SignedURL: url}, nil
	default:
		return FetchResult{}, docstash_errors.ErrInvalidInput
	}
}

func (s *AttachmentService) GetByID(ctx context.Context, id uuid.UUID) (attachment.Attachment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AttachmentService) GetByPage(ctx context.Context, pageID uuid.UUID) ([]attachment.Attachment, error) {
	return s.repo.GetByPage(ctx, pageID)
}

func (s *AttachmentService) GetByCreator(ctx context.Context, creatorID uuid.UUID, page, limit int) ([]attachment.Attachment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.GetByCreator(ctx, creatorID, page, limit)
}

func (s *AttachmentService) UpdateAssociations(ctx context.Context, id uuid.UUID, assoc attachment.Associations) (attachment.Attachment, error) {
	return s.repo.UpdateAssociations(ctx, id, assoc)
}

// Delete soft-deletes the metadata row first, which makes the attachment
// invisible to every reader before the blob is touched. A failed blob
// delete leaves the row soft-deleted and the blob for the purge sweep.
func (s *AttachmentService) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, a.FilePath); err != nil && s.logger != nil {
		s.logger.Warnf("blob delete for %s failed, left for reconciliation: %s", a.FilePath, err)
	}
	return nil
}

// Purge is the reconciliation sweep: it retries blob deletion for rows
// soft-deleted before the cutoff and removes rows whose blob is confirmed
// absent. Rows with a still-present blob stay behind for the next sweep.
func (s *AttachmentService) Purge(ctx context.Context, olderThan time.Duration, limit int) (int64, error) {
	if limit < 1 {
		limit = 100
	}
	cutoff := time.Now().Add(-olderThan)
	rows, err := s.repo.GetSoftDeletedBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	var purged int64
	for _, a := range rows {
		if err := s.storage.Delete(ctx, a.FilePath); err != nil {
			if s.logger != nil {
				s.logger.Warnf("purge: blob delete for %s failed: %s", a.FilePath, err)
			}
			continue
		}
		if err := s.repo.HardDelete(ctx, a.ID); err != nil {
			if s.logger != nil {
				s.logger.Warnf("purge: row delete for %s failed: %s", a.ID, err)
			}
			continue
		}
		purged++
	}
	return purged, nil
}

// StorageInfo echoes the active backend tag and its redacted configuration.
func (s *AttachmentService) StorageInfo() (string, map[string]string) {
	return s.storage.Name(), s.storage.Config()
}

func buildFilePath(creatorID, id uuid.UUID, ext string) string {
	base := fmt.Sprintf("attachments/%s/%s", creatorID.String(), id.String())
	if ext == "" {
		return base
	}
	return base + ext
}

func mimeTypeFor(ext string) *string {
	if ext == "" {
		return nil
	}
	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return nil
	}
	return &ct
}
