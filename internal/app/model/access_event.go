package model

import "time"

// AccessEvent records one resolution of a short link. Events are
// append-only; no foreign key ties them to the links table.
type AccessEvent struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Code       string    `json:"code" gorm:"size:32;index;not null"`
	IP         string    `json:"ip" gorm:"size:64"`
	UserAgent  string    `json:"user_agent" gorm:"type:text"`
	Referer    string    `json:"referer" gorm:"type:text"`
	OccurredAt time.Time `json:"occurred_at" gorm:"index;not null"`
}

const (
	AccessStreamName     = "ACCESS"
	AccessStreamSubject  = "access.events"
	AccessConsumerName   = "access-recorder"
	AccessStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
