package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// File rows are only written after the external processor accepted the
// upload; Metadata stores the processor's response as-is.
type File struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Filename         string    `gorm:"not null" json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FilePath         string    `json:"file_path"`
	ContentType      string    `json:"content_type"`
	FileSize         int64     `json:"file_size"`

	Metadata datatypes.JSON `json:"metadata"`

	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	UploaderID uuid.UUID `gorm:"type:uuid;not null;index" json:"uploader_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project  *Project `gorm:"foreignKey:ProjectID;references:ID" json:"-"`
	Uploader *User    `gorm:"foreignKey:UploaderID;references:ID" json:"-"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
