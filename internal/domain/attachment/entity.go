package attachment

import (
	"time"

	"github.com/google/uuid"
)

// Logical attachment categories.
const (
	TypePageAttachment = "page-attachment"
	TypeAvatar         = "avatar"
	TypeExport         = "export"
)

// Attachment represents one stored binary object and its logical
// associations. The row is owned by the attachment service; the blob bytes
// under FilePath are owned by the active storage driver. A non-nil DeletedAt
// makes the row invisible to readers even while the blob still exists.
type Attachment struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	FileName    string     `gorm:"not null" json:"fileName"`
	FilePath    string     `gorm:"not null" json:"filePath"`
	FileSize    *int64     `json:"fileSize"`
	FileExt     string     `gorm:"not null" json:"fileExt"`
	MimeType    *string    `json:"mimeType"`
	Type        *string    `json:"type"`
	CreatorID   uuid.UUID  `gorm:"type:uuid;not null" json:"creatorId"`
	PageID      *uuid.UUID `gorm:"type:uuid" json:"pageId"`
	SpaceID     *uuid.UUID `gorm:"type:uuid" json:"spaceId"`
	WorkspaceID *uuid.UUID `gorm:"type:uuid" json:"workspaceId"`
	CreatedAt   time.Time  `gorm:"default:now()" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"default:now()" json:"updatedAt"`
	DeletedAt   *time.Time `gorm:"index" json:"deletedAt"`
}

func (Attachment) TableName() string {
	return "attachments"
}

// Associations carries the optional foreign references an attachment can be
// re-pointed at after creation. Nil fields are left unchanged.
type Associations struct {
	PageID      *uuid.UUID
	SpaceID     *uuid.UUID
	WorkspaceID *uuid.UUID
}
