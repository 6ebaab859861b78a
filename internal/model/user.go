package model

import (
	"strings"
	"time"
)

type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ExternalID      *string   `gorm:"size:191;uniqueIndex" json:"-"`
	Email           string    `gorm:"size:191;not null;uniqueIndex" json:"email"`
	FirstName       string    `gorm:"size:128" json:"first_name"`
	LastName        string    `gorm:"size:128" json:"last_name"`
	ProfileImageURL string    `gorm:"size:512" json:"profile_image_url"`
	PasswordHash    string    `gorm:"size:255" json:"-"`
	Role            Role      `gorm:"size:16;not null;default:employee" json:"role"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role.IsAdmin()
}

// DisplayName falls back to the email when no name is known.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
