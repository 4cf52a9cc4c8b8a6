package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"docstash/internal/domain/attachment"
	docstash_errors "docstash/pkg/errors"
)

type PostgresAttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &PostgresAttachmentRepository{db: db}
}

func (r *PostgresAttachmentRepository) Create(ctx context.Context, a *attachment.Attachment) error {
	res := r.db.WithContext(ctx).Create(a)
	if res.Error != nil {
		// file_path uniqueness among live rows is enforced by a partial
		// unique index, so a duplicate key here means a path collision.
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return docstash_errors.ErrConflict
		}
		return res.Error
	}
	return nil
}

func (r *PostgresAttachmentRepository) GetByID(ctx context.Context, id uuid.UUID) (attachment.Attachment, error) {
	var a attachment.Attachment
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return attachment.Attachment{}, docstash_errors.ErrNotFound
		}
		return attachment.Attachment{}, err
	}
	return a, nil
}

func (r *PostgresAttachmentRepository) GetByPage(ctx context.Context, pageID uuid.UUID) ([]attachment.Attachment, error) {
	var items []attachment.Attachment
	err := r.db.WithContext(ctx).
		Where("page_id = ? AND deleted_at IS NULL", pageID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresAttachmentRepository) GetByCreator(ctx context.Context, creatorID uuid.UUID, page, limit int) ([]attachment.Attachment, int64, error) {
	var items []attachment.Attachment
	var total int64

	q := r.db.WithContext(ctx).
		Model(&attachment.Attachment{}).
		Where("creator_id = ? AND deleted_at IS NULL", creatorID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *PostgresAttachmentRepository) UpdateAssociations(ctx context.Context, id uuid.UUID, assoc attachment.Associations) (attachment.Attachment, error) {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if assoc.PageID != nil {
		updates["page_id"] = *assoc.PageID
	}
	if assoc.SpaceID != nil {
		updates["space_id"] = *assoc.SpaceID
	}
	if assoc.WorkspaceID != nil {
		updates["workspace_id"] = *assoc.WorkspaceID
	}

	res := r.db.WithContext(ctx).
		Model(&attachment.Attachment{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return attachment.Attachment{}, res.Error
	}
	if res.RowsAffected == 0 {
		return attachment.Attachment{}, docstash_errors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresAttachmentRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&attachment.Attachment{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return docstash_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresAttachmentRepository) GetSoftDeletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]attachment.Attachment, error) {
	var items []attachment.Attachment
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Order("deleted_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresAttachmentRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&attachment.Attachment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return docstash_errors.ErrNotFound
	}
	return nil
}
