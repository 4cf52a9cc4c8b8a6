package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docstash/internal/domain/attachment"
)

// AttachmentRepository is the persistence contract for attachment metadata.
// All read paths exclude soft-deleted rows; reconciliation helpers at the
// bottom are the only way to reach them.
type AttachmentRepository interface {
	Create(ctx context.Context, a *attachment.Attachment) error
	GetByID(ctx context.Context, id uuid.UUID) (attachment.Attachment, error)
	GetByPage(ctx context.Context, pageID uuid.UUID) ([]attachment.Attachment, error)
	GetByCreator(ctx context.Context, creatorID uuid.UUID, page, limit int) ([]attachment.Attachment, int64, error)
	UpdateAssociations(ctx context.Context, id uuid.UUID, assoc attachment.Associations) (attachment.Attachment, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	GetSoftDeletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]attachment.Attachment, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
}
