// Package store persists users, API keys, admin accounts, and admin sessions.
// SQLite is the default backend; MySQL and Postgres are supported through the
// same sqlx layer for deployments that already run one of those.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/stackmint/keysmith/internal/model"
)

// Supported driver names, as accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Store is the persistence layer. All multi-row mutations (registration,
// cascade delete) run inside a single transaction; uniqueness is enforced by
// database constraints, never by check-then-insert.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the given backend and runs migrations. For MySQL the DSN
// must include parseTime=true; for Postgres any pgx-compatible DSN works.
func Open(driver, dsn string) (*Store, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
	case DriverMySQL:
		sqlDriver = "mysql"
	case DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", driver)
	}

	db, err := sqlx.Connect(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// OpenDefault opens the SQLite backend inside dataDir, creating the directory
// if needed. Pass an empty dataDir for an in-memory database (used by tests).
func OpenDefault(dataDir string) (*Store, error) {
	if dataDir == "" {
		return Open(DriverSQLite, ":memory:?_journal_mode=WAL")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := filepath.Join(dataDir, "keysmith.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	return Open(DriverSQLite, dsn)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// insertRow executes an INSERT written with ? placeholders and returns the
// new row's id. Postgres has no LastInsertId, so the query grows a RETURNING
// clause there.
func insertRow(ctx context.Context, ext sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	if ext.DriverName() == "pgx" {
		var id int64
		if err := sqlx.GetContext(ctx, ext, &id, ext.Rebind(query+" RETURNING id"), args...); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := ext.ExecContext(ctx, ext.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func insertUser(ctx context.Context, ext sqlx.ExtContext, u *model.User) error {
	u.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO users (first_name, last_name, email_address, created_at)
		VALUES (?, ?, ?, ?)`

	id, err := insertRow(ctx, ext, q, u.FirstName, u.LastName, u.Email, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

// CreateUser inserts a new user. The ID and CreatedAt fields are populated
// after a successful insert. Returns ErrDuplicateEmail on a taken email.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	return insertUser(ctx, s.db, u)
}

// GetUserByEmail returns the user with the given email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return getUserByEmail(ctx, s.db, email)
}

func getUserByEmail(ctx context.Context, ext sqlx.ExtContext, email string) (*model.User, error) {
	var u model.User
	q := ext.Rebind("SELECT * FROM users WHERE email_address = ?")
	if err := sqlx.GetContext(ctx, ext, &u, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	q := s.db.Rebind("SELECT * FROM users WHERE id = ?")
	if err := s.db.GetContext(ctx, &u, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users, most recent first.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY id DESC"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListUsersWithKeys returns all users joined with their keys, most recent
// user first. Users without a key appear once with nil key columns; users
// with several keys appear once per key.
func (s *Store) ListUsersWithKeys(ctx context.Context) ([]model.UserWithKey, error) {
	const q = `SELECT
			u.id, u.first_name, u.last_name, u.email_address,
			k.key_value, k.is_active, k.last_used_at, k.created_at AS key_created_at
		FROM users u
		LEFT JOIN api_keys k ON k.user_id = u.id
		ORDER BY u.id DESC, k.id DESC`

	var rows []model.UserWithKey
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list users with keys: %w", err)
	}
	return rows, nil
}

// DeleteUser removes a user row by ID. Returns ErrNotFound if no row matched.
// Key cleanup is the caller's concern; use DeleteUserCascade for the full
// operation.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return deleteUser(ctx, s.db, id)
}

func deleteUser(ctx context.Context, ext sqlx.ExtContext, id int64) error {
	res, err := ext.ExecContext(ctx, ext.Rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

func insertAPIKey(ctx context.Context, ext sqlx.ExtContext, k *model.APIKey) error {
	k.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO api_keys (key_value, user_id, is_active, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`

	id, err := insertRow(ctx, ext, q, k.KeyValue, k.UserID, k.IsActive, k.CreatedAt, k.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	k.ID = id
	return nil
}

// CreateAPIKey inserts a new key record. The ID and CreatedAt fields are
// populated after insert. Returns ErrDuplicateKey if the key string exists.
func (s *Store) CreateAPIKey(ctx context.Context, k *model.APIKey) error {
	return insertAPIKey(ctx, s.db, k)
}

// GetAPIKeyByValue looks up a key by its raw key string.
func (s *Store) GetAPIKeyByValue(ctx context.Context, keyValue string) (*model.APIKey, error) {
	var k model.APIKey
	q := s.db.Rebind("SELECT * FROM api_keys WHERE key_value = ?")
	if err := s.db.GetContext(ctx, &k, q, keyValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key by value: %w", err)
	}
	return &k, nil
}

// ListAPIKeys returns all keys, most recent first.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var keys []model.APIKey
	if err := s.db.SelectContext(ctx, &keys, "SELECT * FROM api_keys ORDER BY id DESC"); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// UpdateAPIKeyLastUsed sets the last_used_at timestamp for a key. Idempotent;
// updating a missing key is not an error.
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id int64, at time.Time) error {
	q := s.db.Rebind("UPDATE api_keys SET last_used_at = ? WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, q, at.UTC(), id); err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

// SetAPIKeyActive flips a key's active flag. Returns ErrNotFound if the key
// does not exist.
func (s *Store) SetAPIKeyActive(ctx context.Context, id int64, active bool) error {
	q := s.db.Rebind("UPDATE api_keys SET is_active = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, q, active, id)
	if err != nil {
		return fmt.Errorf("set api key active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set api key active rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKey removes a key row by ID. Returns ErrNotFound if no row matched.
func (s *Store) DeleteAPIKey(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM api_keys WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKeysByOwner removes every key owned by the given user, returning
// the number of rows removed. Zero matches is not an error.
func (s *Store) DeleteAPIKeysByOwner(ctx context.Context, userID int64) (int64, error) {
	return deleteAPIKeysByOwner(ctx, s.db, userID)
}

func deleteAPIKeysByOwner(ctx context.Context, ext sqlx.ExtContext, userID int64) (int64, error) {
	res, err := ext.ExecContext(ctx, ext.Rebind("DELETE FROM api_keys WHERE user_id = ?"), userID)
	if err != nil {
		return 0, fmt.Errorf("delete api keys by owner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete api keys rows affected: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Registration transactions
// ---------------------------------------------------------------------------

// RegisterUserWithKey inserts a user and a key owned by that user in one
// transaction. On any failure both inserts roll back, so a duplicate email
// never leaves an orphaned key row.
func (s *Store) RegisterUserWithKey(ctx context.Context, u *model.User, k *model.APIKey) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}
	k.UserID = &u.ID
	if err := insertAPIKey(ctx, tx, k); err != nil {
		return err
	}

	return tx.Commit()
}

// AttachKeyToEmail inserts a key owned by the user with the given email,
// creating the user if the email is new and adopting the existing row
// otherwise (upsert-by-email). Runs in one transaction; a duplicate key
// string rolls everything back, including a freshly inserted user.
func (s *Store) AttachKeyToEmail(ctx context.Context, u *model.User, k *model.APIKey) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := getUserByEmail(ctx, tx, u.Email)
	switch {
	case err == nil:
		*u = *existing
	case errors.Is(err, ErrNotFound):
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
	default:
		return err
	}

	k.UserID = &u.ID
	if err := insertAPIKey(ctx, tx, k); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteUserCascade removes every key owned by the user and then the user
// itself, as one transaction. Returns ErrNotFound if the user does not exist;
// in that case no key rows are removed either.
func (s *Store) DeleteUserCascade(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := deleteAPIKeysByOwner(ctx, tx, id); err != nil {
		return err
	}
	if err := deleteUser(ctx, tx, id); err != nil {
		return err
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Admins
// ---------------------------------------------------------------------------

// CreateAdmin inserts a new admin account. Returns ErrDuplicateEmail if the
// email is already registered.
func (s *Store) CreateAdmin(ctx context.Context, a *model.Admin) error {
	a.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO admins (email, password_hash, created_at) VALUES (?, ?, ?)`

	id, err := insertRow(ctx, s.db, q, a.Email, a.PasswordHash, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	a.ID = id
	return nil
}

// GetAdminByEmail returns an admin by email address.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var a model.Admin
	q := s.db.Rebind("SELECT * FROM admins WHERE email = ?")
	if err := s.db.GetContext(ctx, &a, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &a, nil
}

// ListAdmins returns all admin accounts.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins, "SELECT * FROM admins ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether at least one admin account exists. Used for
// first-run detection at startup.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// ---------------------------------------------------------------------------
// Admin sessions
// ---------------------------------------------------------------------------

// CreateSession persists a new admin session.
func (s *Store) CreateSession(ctx context.Context, sess *model.AdminSession) error {
	sess.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO admin_sessions (token_id, admin_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(q),
		sess.TokenID, sess.AdminID, sess.CreatedAt, sess.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession returns the session with the given token ID.
func (s *Store) GetSession(ctx context.Context, tokenID string) (*model.AdminSession, error) {
	var sess model.AdminSession
	q := s.db.Rebind("SELECT * FROM admin_sessions WHERE token_id = ?")
	if err := s.db.GetContext(ctx, &sess, q, tokenID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session unconditionally. Deleting a session that
// does not exist is not an error.
func (s *Store) DeleteSession(ctx context.Context, tokenID string) error {
	q := s.db.Rebind("DELETE FROM admin_sessions WHERE token_id = ?")
	if _, err := s.db.ExecContext(ctx, q, tokenID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions whose expiry is in the past.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	q := s.db.Rebind("DELETE FROM admin_sessions WHERE expires_at < ?")
	res, err := s.db.ExecContext(ctx, q, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions rows affected: %w", err)
	}
	return n, nil
}
