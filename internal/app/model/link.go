package model

import "time"

// ShortLink is the core entity stored in Postgres. The code is unique
// and immutable once assigned; the only mutation after creation is
// deactivation.
type ShortLink struct {
	Code      string     `db:"code" gorm:"primaryKey;size:32"`
	Target    string     `db:"target" gorm:"type:text;not null"`
	Active    bool       `db:"active" gorm:"not null;default:true"`
	ExpiresAt *time.Time `db:"expires_at" gorm:"index"`
	CreatedAt time.Time  `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `db:"updated_at" gorm:"autoUpdateTime"`
}

// Expired reports whether the link's expiry lies in the past relative
// to now. Links without an expiry never expire.
func (l *ShortLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
