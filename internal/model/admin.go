package model

import "time"

// Admin is an administrative account that can inspect and revoke users and
// keys through the admin API. Passwords are stored as bcrypt hashes.
type Admin struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // bcrypt hash, never expose
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AdminSession is the server-side state behind an admin session token. The
// token carried by clients is a JWT whose jti claim equals TokenID; a token
// is only honored while its session row exists and has not expired.
type AdminSession struct {
	TokenID   string    `db:"token_id"`
	AdminID   int64     `db:"admin_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
