package model

import "time"

// User is the identity an API key is issued to. Email addresses are unique
// across all users. Deleting a user removes every key it owns.
type User struct {
	ID        int64     `json:"id" db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Email     string    `json:"email_address" db:"email_address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserWithKey is the admin listing row: a user joined with its most relevant
// key columns. Key columns are nil for users that currently own no key.
type UserWithKey struct {
	ID         int64      `json:"id" db:"id"`
	FirstName  string     `json:"first_name" db:"first_name"`
	LastName   string     `json:"last_name" db:"last_name"`
	Email      string     `json:"email_address" db:"email_address"`
	KeyValue   *string    `json:"api_key,omitempty" db:"key_value"`
	KeyActive  *bool      `json:"is_active,omitempty" db:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	KeyCreated *time.Time `json:"key_created_at,omitempty" db:"key_created_at"`
}
