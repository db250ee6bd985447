package model

import "time"

// APIKey represents an issued bearer credential. The raw key string is the
// credential itself and is stored verbatim; it is unique across all keys.
// A key may exist without an owner (keys minted via the CLI before any user
// registers), in which case UserID is nil.
type APIKey struct {
	ID         int64      `json:"id" db:"id"`
	KeyValue   string     `json:"api_key" db:"key_value"`
	UserID     *int64     `json:"user_id,omitempty" db:"user_id"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"` // displayed only, never enforced
}
