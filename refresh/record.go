package refresh

import "time"

// Record is one refresh token issued to a user.
type Record struct {
	Token     string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// RevokedAt is zero while the token is unrevoked. Once set it never changes.
	RevokedAt time.Time
	// ReplacedBy is the token minted when this one was consumed by rotation.
	ReplacedBy string
}

// IsExpired reports whether now is at or past the record's expiry.
func (r Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IsActive reports whether the record is unrevoked and unexpired at now.
func (r Record) IsActive(now time.Time) bool {
	return r.RevokedAt.IsZero() && !r.IsExpired(now)
}

// Revoked reports whether RevokedAt has been set.
func (r Record) Revoked() bool {
	return !r.RevokedAt.IsZero()
}

// Rotated reports whether the record was consumed by a rotation.
func (r Record) Rotated() bool {
	return r.ReplacedBy != ""
}
