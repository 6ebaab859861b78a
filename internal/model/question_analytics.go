package model

import "time"

// QuestionAnalytics counts asks per normalized question.
type QuestionAnalytics struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	QuestionText       string    `gorm:"type:text;not null" json:"question_text"`
	NormalizedQuestion string    `gorm:"size:500;not null;uniqueIndex" json:"normalized_question"`
	Count              int64     `gorm:"not null;default:1" json:"count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (QuestionAnalytics) TableName() string {
	return "question_analytics"
}

// All returns every table in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&OAuthToken{},
		&Document{},
		&ChatMessage{},
		&QuestionAnalytics{},
	}
}
