package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/stackmint/keysmith/internal/keygen"
	"github.com/stackmint/keysmith/internal/model"
	"github.com/stackmint/keysmith/internal/store"
)

// KeyService owns the API key lifecycle: registration, validation, usage
// tracking, and revocation. All mutations of users and keys go through it.
type KeyService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewKeyService creates a KeyService backed by the given store.
func NewKeyService(st *store.Store, logger *slog.Logger) *KeyService {
	return &KeyService{store: st, logger: logger}
}

// Register creates a user together with a freshly generated key, atomically.
// A duplicate email rolls back both inserts, so no orphaned key row survives.
// The generated key string is returned; a generated key that collides with an
// existing one is rejected (store.ErrDuplicateKey) rather than retried.
func (s *KeyService) Register(ctx context.Context, firstName, lastName, email string) (*model.User, string, error) {
	if firstName == "" || lastName == "" || email == "" {
		return nil, "", ErrMissingField
	}

	keyValue, err := keygen.Generate()
	if err != nil {
		return nil, "", err
	}

	user := &model.User{FirstName: firstName, LastName: lastName, Email: email}
	key := &model.APIKey{KeyValue: keyValue, IsActive: true}

	if err := s.store.RegisterUserWithKey(ctx, user, key); err != nil {
		return nil, "", err
	}
	return user, keyValue, nil
}

// RegisterWithKey attaches a client-supplied key to the user with the given
// email, creating the user if the email is new and adopting the existing user
// otherwise. The key must be well-formed. A key string that already exists
// fails with store.ErrDuplicateKey and rolls back entirely; regenerating and
// retrying is the caller's responsibility.
func (s *KeyService) RegisterWithKey(ctx context.Context, firstName, lastName, email, rawKey string) (*model.User, string, error) {
	if firstName == "" || lastName == "" || email == "" {
		return nil, "", ErrMissingField
	}

	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, "", ErrMissingKey
	}
	if !keygen.IsWellFormed(rawKey) {
		return nil, "", ErrMalformedKey
	}

	user := &model.User{FirstName: firstName, LastName: lastName, Email: email}
	key := &model.APIKey{KeyValue: rawKey, IsActive: true}

	if err := s.store.AttachKeyToEmail(ctx, user, key); err != nil {
		return nil, "", err
	}
	return user, rawKey, nil
}

// Validate checks a raw key string and records its use. The check order is
// fixed: empty, then prefix (both before any store access), then existence,
// then activation. The last-used write is best-effort; its failure is logged
// and never changes the verdict.
func (s *KeyService) Validate(ctx context.Context, rawKey string) error {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return ErrMissingKey
	}
	if !keygen.IsWellFormed(rawKey) {
		return ErrMalformedKey
	}

	key, err := s.store.GetAPIKeyByValue(ctx, rawKey)
	if err != nil {
		if err == store.ErrNotFound {
			return ErrUnknownKey
		}
		return err
	}

	if !key.IsActive {
		return ErrInactiveKey
	}

	if err := s.store.UpdateAPIKeyLastUsed(ctx, key.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record key use", "key_id", key.ID, "error", err)
	}
	return nil
}

// RevokeKey deletes a key row by ID.
func (s *KeyService) RevokeKey(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return s.store.DeleteAPIKey(ctx, id)
}

// DeactivateKey flips a key inactive without deleting the record, so the key
// starts failing validation with an "inactive" verdict instead of "unknown".
func (s *KeyService) DeactivateKey(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return s.store.SetAPIKeyActive(ctx, id, false)
}

// DeleteUser removes a user and every key it owns as one logical operation.
// Returns store.ErrNotFound for a missing user, in which case nothing is
// deleted.
func (s *KeyService) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return s.store.DeleteUserCascade(ctx, id)
}

// ListKeys returns all key records, most recent first.
func (s *KeyService) ListKeys(ctx context.Context) ([]model.APIKey, error) {
	return s.store.ListAPIKeys(ctx)
}

// ListUsers returns the admin view: users joined with their key info.
func (s *KeyService) ListUsers(ctx context.Context) ([]model.UserWithKey, error) {
	return s.store.ListUsersWithKeys(ctx)
}
