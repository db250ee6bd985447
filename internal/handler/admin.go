package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stackmint/keysmith/internal/model"
	"github.com/stackmint/keysmith/internal/service"
	"github.com/stackmint/keysmith/internal/store"
)

// AdminHandler serves the privileged admin surface: account registration,
// login/logout, listings, and revocation.
type AdminHandler struct {
	keys *service.KeyService
	auth *service.AuthService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(keys *service.KeyService, auth *service.AuthService) *AdminHandler {
	return &AdminHandler{keys: keys, auth: auth}
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new admin account.
// POST /admin/register
func (h *AdminHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	admin, err := h.auth.RegisterAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "Admin with this email already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create admin")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    admin.ID,
		"email": admin.Email,
	})
}

// loginResponse is the payload for a successful login.
type loginResponse struct {
	Token     string `json:"session_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// Login authenticates an admin and opens a session.
// POST /admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "Authentication error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(service.DefaultSessionTTL.Seconds()),
	})
}

// Logout destroys the current session.
// POST /admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if auth := r.Header.Get("Authorization"); len(auth) >= 7 && strings.EqualFold(auth[:7], "Bearer ") {
		token = strings.TrimSpace(auth[7:])
	}
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to end session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Session ended",
	})
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

// Dashboard returns the summary view the admin UI renders: key and user
// counts plus the full key listing with derived status.
// GET /admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.ListKeys(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load keys")
		return
	}
	users, err := h.keys.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load users")
		return
	}

	now := time.Now()
	online := 0
	keyRows := make([]map[string]interface{}, 0, len(keys))
	for i := range keys {
		m := apiKeyToMap(&keys[i], now)
		if m["status"] == model.StatusOnline {
			online++
		}
		keyRows = append(keyRows, m)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_keys":   len(keys),
		"online_keys":  online,
		"offline_keys": len(keys) - online,
		"total_users":  countDistinctUsers(users),
		"keys":         keyRows,
	})
}

// ListAPIKeys returns every key record with its derived status.
// GET /admin/apikeys
func (h *AdminHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.ListKeys(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list API keys")
		return
	}

	now := time.Now()
	resources := make([]map[string]interface{}, 0, len(keys))
	for i := range keys {
		resources = append(resources, apiKeyToMap(&keys[i], now))
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: resources,
		Meta:     &model.ResponseMeta{Count: len(resources)},
	})
}

// ListUsers returns every user joined with its key info.
// GET /admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.keys.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	now := time.Now()
	resources := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		resources = append(resources, userWithKeyToMap(&users[i], now))
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: resources,
		Meta:     &model.ResponseMeta{Count: len(resources)},
	})
}

// ---------------------------------------------------------------------------
// Revocation
// ---------------------------------------------------------------------------

// DeleteAPIKey removes a key record by ID.
// DELETE /admin/apikey/{id}
func (h *AdminHandler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.keys.RevokeKey(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			writeError(w, http.StatusBadRequest, "Invalid key ID")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "API key not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to delete API key")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "API key deleted",
	})
}

// DeactivateAPIKey flips a key inactive without removing the record.
// POST /admin/apikey/{id}/deactivate
func (h *AdminHandler) DeactivateAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.keys.DeactivateKey(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			writeError(w, http.StatusBadRequest, "Invalid key ID")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "API key not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to deactivate API key")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "API key deactivated",
	})
}

// DeleteUser removes a user and every key it owns.
// DELETE /admin/user/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.keys.DeleteUser(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			writeError(w, http.StatusBadRequest, "Invalid user ID")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to delete user")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User and associated keys deleted",
	})
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// pathID parses the {id} route parameter, writing a 400 on junk input.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID: "+idStr)
		return 0, false
	}
	return id, true
}

func apiKeyToMap(k *model.APIKey, now time.Time) map[string]interface{} {
	m := map[string]interface{}{
		"id":         k.ID,
		"api_key":    k.KeyValue,
		"is_active":  k.IsActive,
		"created_at": k.CreatedAt,
		"status":     k.Status(now),
	}
	if k.UserID != nil {
		m["user_id"] = *k.UserID
	}
	if k.LastUsedAt != nil {
		m["last_used_at"] = k.LastUsedAt
	}
	if k.ExpiresAt != nil {
		m["expires_at"] = k.ExpiresAt
	}
	return m
}

func userWithKeyToMap(u *model.UserWithKey, now time.Time) map[string]interface{} {
	m := map[string]interface{}{
		"id":            u.ID,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"email_address": u.Email,
	}
	if u.KeyValue != nil {
		m["api_key"] = *u.KeyValue
		active := u.KeyActive != nil && *u.KeyActive
		m["is_active"] = active
		m["status"] = model.KeyStatus(active, u.LastUsedAt, u.KeyCreated, now)
	}
	return m
}

// countDistinctUsers counts unique user IDs in the joined listing, which
// repeats a user once per owned key.
func countDistinctUsers(rows []model.UserWithKey) int {
	seen := make(map[int64]struct{}, len(rows))
	for i := range rows {
		seen[rows[i].ID] = struct{}{}
	}
	return len(seen)
}
