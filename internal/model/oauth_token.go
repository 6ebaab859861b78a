package model

import "time"

// OAuthToken is the provider credential issued to one browser session.
type OAuthToken struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;uniqueIndex:uq_user_browser_session_key_provider" json:"user_id"`
	Provider          string    `gorm:"size:50;not null;uniqueIndex:uq_user_browser_session_key_provider" json:"provider"`
	BrowserSessionKey string    `gorm:"size:64;not null;uniqueIndex:uq_user_browser_session_key_provider" json:"-"`
	AccessToken       string    `gorm:"type:text;not null" json:"-"`
	RefreshToken      string    `gorm:"type:text" json:"-"`
	TokenType         string    `gorm:"size:50" json:"token_type"`
	Expiry            time.Time `json:"expiry"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
