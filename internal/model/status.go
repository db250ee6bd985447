package model

import "time"

// Status is the derived online/offline presentation state of a key. It is
// recomputed on every read and never persisted.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// OnlineWindow is how recently a key must have been seen to count as online.
const OnlineWindow = 30 * 24 * time.Hour

// KeyStatus derives the presentation status of a key. An inactive key is
// always offline. Otherwise the reference time is the last use, falling back
// to creation; a key with no usable reference, or one whose reference is more
// than OnlineWindow in the past, is offline.
func KeyStatus(isActive bool, lastUsedAt, createdAt *time.Time, now time.Time) Status {
	if !isActive {
		return StatusOffline
	}
	ref := lastUsedAt
	if ref == nil {
		ref = createdAt
	}
	if ref == nil || ref.IsZero() {
		return StatusOffline
	}
	if now.Sub(*ref) > OnlineWindow {
		return StatusOffline
	}
	return StatusOnline
}

// Status derives the key's online/offline state as of now.
func (k *APIKey) Status(now time.Time) Status {
	created := &k.CreatedAt
	if k.CreatedAt.IsZero() {
		created = nil
	}
	return KeyStatus(k.IsActive, k.LastUsedAt, created, now)
}
