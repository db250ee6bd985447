package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stackmint/keysmith/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenDefault("") // in-memory
	if err != nil {
		t.Fatalf("OpenDefault: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testKey(suffix string) string {
	return "sk-sm-v1-" + suffix
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("expected non-zero ID after create")
	}
	if u.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be populated")
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != "jane@example.com" {
		t.Errorf("got email %q, want %q", got.Email, "jane@example.com")
	}

	got2, err := s.GetUserByEmail(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got2.ID != u.ID {
		t.Errorf("got ID %d, want %d", got2.ID, u.ID)
	}

	list, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d users, want 1", len(list))
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	dup := &model.User{FirstName: "Other", LastName: "Jane", Email: "jane@example.com"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAPIKeyCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	k := &model.APIKey{KeyValue: testKey("AAAA"), IsActive: true}
	if err := s.CreateAPIKey(ctx, k); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if k.ID == 0 {
		t.Fatal("expected non-zero ID")
	}

	got, err := s.GetAPIKeyByValue(ctx, testKey("AAAA"))
	if err != nil {
		t.Fatalf("GetAPIKeyByValue: %v", err)
	}
	if got.ID != k.ID {
		t.Errorf("got ID %d, want %d", got.ID, k.ID)
	}
	if !got.IsActive {
		t.Error("expected key to be active")
	}
	if got.LastUsedAt != nil {
		t.Error("expected nil LastUsedAt on a fresh key")
	}

	if _, err := s.GetAPIKeyByValue(ctx, testKey("MISSING")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Duplicate key value
	dup := &model.APIKey{KeyValue: testKey("AAAA"), IsActive: true}
	if err := s.CreateAPIKey(ctx, dup); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Deactivate
	if err := s.SetAPIKeyActive(ctx, k.ID, false); err != nil {
		t.Fatalf("SetAPIKeyActive: %v", err)
	}
	got, _ = s.GetAPIKeyByValue(ctx, testKey("AAAA"))
	if got.IsActive {
		t.Error("expected key to be inactive after SetAPIKeyActive(false)")
	}
	if err := s.SetAPIKeyActive(ctx, 9999, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing key, got %v", err)
	}

	// Delete
	if err := s.DeleteAPIKey(ctx, k.ID); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	if err := s.DeleteAPIKey(ctx, k.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUpdateAPIKeyLastUsed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	k := &model.APIKey{KeyValue: testKey("BBBB"), IsActive: true}
	if err := s.CreateAPIKey(ctx, k); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.UpdateAPIKeyLastUsed(ctx, k.ID, at); err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed: %v", err)
	}

	got, err := s.GetAPIKeyByValue(ctx, testKey("BBBB"))
	if err != nil {
		t.Fatalf("GetAPIKeyByValue: %v", err)
	}
	if got.LastUsedAt == nil {
		t.Fatal("expected LastUsedAt to be set")
	}
	if !got.LastUsedAt.Equal(at) {
		t.Errorf("got LastUsedAt %v, want %v", got.LastUsedAt, at)
	}

	// Touching a missing key is not an error.
	if err := s.UpdateAPIKeyLastUsed(ctx, 9999, at); err != nil {
		t.Errorf("expected nil error for missing key, got %v", err)
	}
}

func TestRegisterUserWithKeyRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}
	k := &model.APIKey{KeyValue: testKey("CCC1"), IsActive: true}
	if err := s.RegisterUserWithKey(ctx, u, k); err != nil {
		t.Fatalf("RegisterUserWithKey: %v", err)
	}
	if k.UserID == nil || *k.UserID != u.ID {
		t.Error("expected key to be owned by the new user")
	}

	// Duplicate email rolls back both inserts.
	u2 := &model.User{FirstName: "Other", LastName: "Jane", Email: "jane@example.com"}
	k2 := &model.APIKey{KeyValue: testKey("CCC2"), IsActive: true}
	if err := s.RegisterUserWithKey(ctx, u2, k2); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if _, err := s.GetAPIKeyByValue(ctx, testKey("CCC2")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected no orphaned key row, got %v", err)
	}

	keys, err := s.ListAPIKeys(ctx)
	if err != nil {
		t.Fatalf("ListAPIKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("got %d keys, want 1", len(keys))
	}
}

func TestAttachKeyToEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// New email creates the user.
	u := &model.User{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}
	k := &model.APIKey{KeyValue: testKey("DDD1"), IsActive: true}
	if err := s.AttachKeyToEmail(ctx, u, k); err != nil {
		t.Fatalf("AttachKeyToEmail: %v", err)
	}
	firstID := u.ID

	// Same email adopts the existing user row.
	u2 := &model.User{FirstName: "Janet", LastName: "Doe", Email: "jane@example.com"}
	k2 := &model.APIKey{KeyValue: testKey("DDD2"), IsActive: true}
	if err := s.AttachKeyToEmail(ctx, u2, k2); err != nil {
		t.Fatalf("AttachKeyToEmail second: %v", err)
	}
	if u2.ID != firstID {
		t.Errorf("got user ID %d, want existing %d", u2.ID, firstID)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("got %d users, want 1", len(users))
	}

	// Duplicate key string rolls back everything, including a new user.
	u3 := &model.User{FirstName: "New", LastName: "Person", Email: "new@example.com"}
	k3 := &model.APIKey{KeyValue: testKey("DDD1"), IsActive: true}
	if err := s.AttachKeyToEmail(ctx, u3, k3); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := s.GetUserByEmail(ctx, "new@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected no orphaned user row, got %v", err)
	}
}

func TestDeleteUserCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	for _, suffix := range []string{"E1", "E2", "E3"} {
		k := &model.APIKey{KeyValue: testKey(suffix), UserID: &u.ID, IsActive: true}
		if err := s.CreateAPIKey(ctx, k); err != nil {
			t.Fatalf("CreateAPIKey %s: %v", suffix, err)
		}
	}

	if err := s.DeleteUserCascade(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUserCascade: %v", err)
	}

	keys, err := s.ListAPIKeys(ctx)
	if err != nil {
		t.Fatalf("ListAPIKeys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("got %d keys after cascade, want 0", len(keys))
	}
	if _, err := s.GetUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected user gone, got %v", err)
	}

	// Missing user is ErrNotFound and leaves nothing deleted.
	if err := s.DeleteUserCascade(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsersWithKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	keyless := &model.User{FirstName: "No", LastName: "Key", Email: "nokey@example.com"}
	if err := s.CreateUser(ctx, keyless); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	owner := &model.User{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}
	k := &model.APIKey{KeyValue: testKey("FFF1"), IsActive: true}
	if err := s.RegisterUserWithKey(ctx, owner, k); err != nil {
		t.Fatalf("RegisterUserWithKey: %v", err)
	}

	rows, err := s.ListUsersWithKeys(ctx)
	if err != nil {
		t.Fatalf("ListUsersWithKeys: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	// Most recent user first.
	if rows[0].Email != "jane@example.com" {
		t.Errorf("got first row email %q, want jane@example.com", rows[0].Email)
	}
	if rows[0].KeyValue == nil || *rows[0].KeyValue != testKey("FFF1") {
		t.Error("expected joined key value on owning user")
	}
	if rows[1].KeyValue != nil {
		t.Error("expected nil key columns for keyless user")
	}
}

func TestAdminAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	has, err := s.HasAnyAdmin(ctx)
	if err != nil {
		t.Fatalf("HasAnyAdmin: %v", err)
	}
	if has {
		t.Error("expected no admins in a fresh store")
	}

	a := &model.Admin{Email: "admin@example.com", PasswordHash: "x"}
	if err := s.CreateAdmin(ctx, a); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if a.ID == 0 {
		t.Fatal("expected non-zero admin ID")
	}

	dup := &model.Admin{Email: "admin@example.com", PasswordHash: "y"}
	if err := s.CreateAdmin(ctx, dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}

	got, err := s.GetAdminByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetAdminByEmail: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("got ID %d, want %d", got.ID, a.ID)
	}

	has, err = s.HasAnyAdmin(ctx)
	if err != nil {
		t.Fatalf("HasAnyAdmin: %v", err)
	}
	if !has {
		t.Error("expected HasAnyAdmin true after create")
	}
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &model.Admin{Email: "admin@example.com", PasswordHash: "x"}
	if err := s.CreateAdmin(ctx, a); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	sess := &model.AdminSession{
		TokenID:   "tok-1",
		AdminID:   a.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := s.GetSession(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.AdminID != a.ID {
		t.Errorf("got admin ID %d, want %d", got.AdminID, a.ID)
	}

	if err := s.DeleteSession(ctx, "tok-1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.GetSession(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting a missing session is fine.
	if err := s.DeleteSession(ctx, "tok-1"); err != nil {
		t.Errorf("expected nil on repeated delete, got %v", err)
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &model.Admin{Email: "admin@example.com", PasswordHash: "x"}
	if err := s.CreateAdmin(ctx, a); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	expired := &model.AdminSession{TokenID: "old", AdminID: a.ID, ExpiresAt: time.Now().Add(-time.Hour)}
	live := &model.AdminSession{TokenID: "live", AdminID: a.ID, ExpiresAt: time.Now().Add(time.Hour)}
	for _, sess := range []*model.AdminSession{expired, live} {
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession %s: %v", sess.TokenID, err)
		}
	}

	n, err := s.PurgeExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d sessions, want 1", n)
	}
	if _, err := s.GetSession(ctx, "live"); err != nil {
		t.Errorf("expected live session to survive purge, got %v", err)
	}
}
