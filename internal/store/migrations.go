package store

import "fmt"

// migrate creates the schema for the active driver. Statements are idempotent
// so migrate can run on every startup.
func (s *Store) migrate() error {
	var migrations []string

	switch s.driver {
	case DriverMySQL:
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				first_name VARCHAR(255) NOT NULL,
				last_name VARCHAR(255) NOT NULL,
				email_address VARCHAR(255) NOT NULL UNIQUE,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS api_keys (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				key_value VARCHAR(128) NOT NULL UNIQUE,
				user_id BIGINT NULL,
				is_active TINYINT(1) NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				last_used_at DATETIME NULL,
				expires_at DATETIME NULL,
				CONSTRAINT fk_api_keys_user FOREIGN KEY (user_id)
					REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS admins (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				email VARCHAR(255) NOT NULL UNIQUE,
				password_hash VARCHAR(255) NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS admin_sessions (
				token_id VARCHAR(64) PRIMARY KEY,
				admin_id BIGINT NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				CONSTRAINT fk_admin_sessions_admin FOREIGN KEY (admin_id)
					REFERENCES admins(id) ON DELETE CASCADE
			)`,
		}

	case DriverPostgres:
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				email_address TEXT NOT NULL UNIQUE,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS api_keys (
				id BIGSERIAL PRIMARY KEY,
				key_value TEXT NOT NULL UNIQUE,
				user_id BIGINT REFERENCES users(id) ON DELETE CASCADE,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL,
				last_used_at TIMESTAMPTZ,
				expires_at TIMESTAMPTZ
			)`,
			`CREATE TABLE IF NOT EXISTS admins (
				id BIGSERIAL PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS admin_sessions (
				token_id TEXT PRIMARY KEY,
				admin_id BIGINT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL,
				expires_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id)`,
		}

	default: // sqlite
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				email_address TEXT NOT NULL UNIQUE,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS api_keys (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				key_value TEXT NOT NULL UNIQUE,
				user_id INTEGER REFERENCES users(id) ON DELETE CASCADE,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				last_used_at DATETIME,
				expires_at DATETIME
			)`,
			`CREATE TABLE IF NOT EXISTS admins (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS admin_sessions (
				token_id TEXT PRIMARY KEY,
				admin_id INTEGER NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id)`,
		}
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
