package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/stackmint/keysmith/internal/model"
	"github.com/stackmint/keysmith/internal/store"
)

// DefaultSessionTTL is how long an admin session lives without logout.
const DefaultSessionTTL = 24 * time.Hour

// AuthService is the admin authentication gate. Session tokens are HS256
// JWTs whose jti claim points at a server-side session row; logout deletes
// the row, so a signed token alone is never enough.
type AuthService struct {
	store      *store.Store
	jwtSecret  []byte
	sessionTTL time.Duration
}

// NewAuthService creates an AuthService. A zero ttl falls back to
// DefaultSessionTTL.
func NewAuthService(st *store.Store, jwtSecret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		store:      st,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: ttl,
	}
}

type sessionClaims struct {
	AdminID int64  `json:"admin_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// RegisterAdmin stores a new admin account with a bcrypt password hash. The
// raw password is never persisted. Returns store.ErrDuplicateEmail for a
// taken email.
func (s *AuthService) RegisterAdmin(ctx context.Context, email, password string) (*model.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &model.Admin{Email: email, PasswordHash: string(hash)}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// Login verifies credentials and opens a new session, returning the signed
// session token. Unknown email and wrong password both produce
// ErrInvalidCredentials so callers cannot enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	sess := &model.AdminSession{
		TokenID:   uuid.NewString(),
		AdminID:   admin.ID,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", err
	}

	claims := sessionClaims{
		AdminID: admin.ID,
		Email:   admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.TokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			Issuer:    "keysmith",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// Logout destroys the server-side session behind the token, unconditionally.
// A garbage token has no session to destroy and is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil
	}
	return s.store.DeleteSession(ctx, claims.ID)
}

// RequireAuthenticated verifies a session token and returns the admin ID it
// belongs to. Every privileged operation is gated on this call. Any failure
// mode (bad signature, missing session, expired session) yields
// ErrUnauthenticated.
func (s *AuthService) RequireAuthenticated(ctx context.Context, token string) (int64, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return 0, ErrUnauthenticated
	}

	sess, err := s.store.GetSession(ctx, claims.ID)
	if err != nil {
		return 0, ErrUnauthenticated
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.store.DeleteSession(ctx, sess.TokenID)
		return 0, ErrUnauthenticated
	}
	return sess.AdminID, nil
}

func (s *AuthService) parseToken(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
