package domain

import "time"

// TokenRevokedEvent announces a token invalidation to peer nodes so their
// local blacklists converge ahead of the next durable-store resync.
type TokenRevokedEvent struct {
	EventID   string    `json:"event_id"`
	Token     string    `json:"token"`
	SubjectID int64     `json:"subject_id,omitempty"`
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}
