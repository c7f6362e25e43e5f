package domain

import "time"

// Link represents a shortened URL
type Link struct {
	ID            int64      `json:"id"`
	OriginalURL   string     `json:"original_url"`
	ShortCode     string     `json:"short_code"`
	OwnerID       *string    `json:"owner_id,omitempty"` // nil for guest-created links
	CreatorOrigin string     `json:"-"`                  // network origin recorded at creation
	ClickCount    int64      `json:"click_count"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"` // nil = never expires
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsExpired reports whether the link has expired at the given time.
func (l *Link) IsExpired(now time.Time) bool {
	if l.ExpiresAt == nil {
		return false
	}
	return now.After(*l.ExpiresAt)
}

// OwnedBy reports whether the link belongs to the given user.
// Guest links belong to nobody.
func (l *Link) OwnedBy(userID string) bool {
	return l.OwnerID != nil && *l.OwnerID == userID
}

// Clone returns a deep copy of the link.
func (l *Link) Clone() *Link {
	c := *l
	if l.OwnerID != nil {
		owner := *l.OwnerID
		c.OwnerID = &owner
	}
	if l.ExpiresAt != nil {
		exp := *l.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}

// LinkPatch describes a partial update to a link. Nil pointer fields are
// left unchanged. ClearExpiry removes the expiry; it is mutually exclusive
// with ExpiresAt.
type LinkPatch struct {
	OriginalURL *string
	ShortCode   *string
	ExpiresAt   *time.Time
	ClearExpiry bool
}

// Empty reports whether the patch would change nothing.
func (p LinkPatch) Empty() bool {
	return p.OriginalURL == nil && p.ShortCode == nil && p.ExpiresAt == nil && !p.ClearExpiry
}
