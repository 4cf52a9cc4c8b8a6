package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"docstash/internal/domain/attachment"
	"docstash/internal/repository"
	docstash_errors "docstash/pkg/errors"
)

// AttachmentRepo is an in-memory AttachmentRepository for tests. It mirrors
// the Postgres implementation's semantics: reads exclude soft-deleted rows
// and file_path uniqueness is enforced among live rows only.
type AttachmentRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]attachment.Attachment

	// CreateErr, when set, fails every Create call. Used to exercise the
	// compensating-delete path of the upload protocol.
	CreateErr error
}

func NewAttachmentRepo() *AttachmentRepo {
	return &AttachmentRepo{rows: make(map[uuid.UUID]attachment.Attachment)}
}

func (r *AttachmentRepo) Create(ctx context.Context, a *attachment.Attachment) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if existing.DeletedAt == nil && existing.FilePath == a.FilePath {
			return docstash_errors.ErrConflict
		}
	}
	r.rows[a.ID] = *a
	return nil
}

func (r *AttachmentRepo) GetByID(ctx context.Context, id uuid.UUID) (attachment.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.rows[id]
	if !ok || a.DeletedAt != nil {
		return attachment.Attachment{}, docstash_errors.ErrNotFound
	}
	return a, nil
}

func (r *AttachmentRepo) GetByPage(ctx context.Context, pageID uuid.UUID) ([]attachment.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []attachment.Attachment
	for _, a := range r.rows {
		if a.DeletedAt == nil && a.PageID != nil && *a.PageID == pageID {
			items = append(items, a)
		}
	}
	return items, nil
}

func (r *AttachmentRepo) GetByCreator(ctx context.Context, creatorID uuid.UUID, page, limit int) ([]attachment.Attachment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []attachment.Attachment
	for _, a := range r.rows {
		if a.DeletedAt == nil && a.CreatorID == creatorID {
			items = append(items, a)
		}
	}
	return items, int64(len(items)), nil
}

func (r *AttachmentRepo) UpdateAssociations(ctx context.Context, id uuid.UUID, assoc attachment.Associations) (attachment.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[id]
	if !ok || a.DeletedAt != nil {
		return attachment.Attachment{}, docstash_errors.ErrNotFound
	}
	if assoc.PageID != nil {
		a.PageID = assoc.PageID
	}
	if assoc.SpaceID != nil {
		a.SpaceID = assoc.SpaceID
	}
	if assoc.WorkspaceID != nil {
		a.WorkspaceID = assoc.WorkspaceID
	}
	a.UpdatedAt = time.Now()
	r.rows[id] = a
	return a, nil
}

func (r *AttachmentRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[id]
	if !ok || a.DeletedAt != nil {
		return docstash_errors.ErrNotFound
	}
	now := time.Now()
	a.DeletedAt = &now
	a.UpdatedAt = now
	r.rows[id] = a
	return nil
}

func (r *AttachmentRepo) GetSoftDeletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]attachment.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []attachment.Attachment
	for _, a := range r.rows {
		if a.DeletedAt != nil && a.DeletedAt.Before(cutoff) {
			items = append(items, a)
			if len(items) == limit {
				break
			}
		}
	}
	return items, nil
}

func (r *AttachmentRepo) HardDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return docstash_errors.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

// Raw returns the stored row regardless of soft-delete state.
func (r *AttachmentRepo) Raw(id uuid.UUID) (attachment.Attachment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.rows[id]
	return a, ok
}

var _ repository.AttachmentRepository = (*AttachmentRepo)(nil)
