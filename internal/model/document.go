package model

import "time"

type Document struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Filename         string    `gorm:"size:255;not null;uniqueIndex" json:"filename"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	FileType         string    `gorm:"size:50;not null" json:"file_type"`
	Content          string    `gorm:"not null" json:"-"`
	FileSize         int64     `gorm:"not null" json:"file_size"`
	UploadedBy       uint      `gorm:"not null;index" json:"uploaded_by"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Uploader User `gorm:"foreignKey:UploadedBy" json:"-"`
}
