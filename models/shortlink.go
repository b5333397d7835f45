package models

import "time"

// AnonymousTTL is how long links created without an owner stay live.
const AnonymousTTL = 7 * 24 * time.Hour

// ShortLink maps a short code to its original URL.
type ShortLink struct {
	Code        string     `gorm:"primaryKey;size:16" json:"code"`
	OriginalURL string     `gorm:"size:2083;not null" json:"original_url"`
	Clicks      int64      `gorm:"not null;default:0" json:"clicks"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_shortened_urls_user_created,priority:2" json:"created_at"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at,omitempty"`
	UserID      *string    `gorm:"size:255;index:idx_shortened_urls_user_created,priority:1" json:"user_id,omitempty"`
}

// TableName keeps the table name stable regardless of gorm's naming strategy.
func (ShortLink) TableName() string {
	return "shortened_urls"
}

// Expired reports whether the link is past its expiry at now.
func (l *ShortLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// Owned reports whether the link belongs to an identity.
func (l *ShortLink) Owned() bool {
	return l.UserID != nil && *l.UserID != ""
}

// SameOwner reports whether owner (nil for anonymous) is the link's owner context.
func (l *ShortLink) SameOwner(owner *string) bool {
	if !l.Owned() {
		return owner == nil || *owner == ""
	}
	return owner != nil && *owner == *l.UserID
}
