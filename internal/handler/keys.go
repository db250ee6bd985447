package handler

import (
	"errors"
	"net/http"

	"github.com/stackmint/keysmith/internal/keygen"
	"github.com/stackmint/keysmith/internal/service"
	"github.com/stackmint/keysmith/internal/store"
)

// KeyHandler serves the public key lifecycle endpoints: registration, key
// minting, and validation.
type KeyHandler struct {
	keys *service.KeyService
}

// NewKeyHandler creates a KeyHandler.
func NewKeyHandler(keys *service.KeyService) *KeyHandler {
	return &KeyHandler{keys: keys}
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email_address"`
	APIKey    string `json:"api_key"`
}

// Register creates a user and a generated key in one shot.
// POST /register
func (h *KeyHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writePlainError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, keyValue, err := h.keys.Register(r.Context(), req.FirstName, req.LastName, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingField):
			writePlainError(w, http.StatusBadRequest, "All fields are required")
		case errors.Is(err, store.ErrDuplicateEmail):
			writePlainError(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, store.ErrDuplicateKey):
			writePlainError(w, http.StatusBadRequest, "Generated key collided, please try again")
		default:
			writePlainError(w, http.StatusInternalServerError, "Failed to create user and API key")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User and API key created",
		"api_key": keyValue,
	})
}

// RegisterWithKey attaches a client-supplied key to a user, creating the user
// if the email is new.
// POST /user
func (h *KeyHandler) RegisterWithKey(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writePlainError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, keyValue, err := h.keys.RegisterWithKey(r.Context(), req.FirstName, req.LastName, req.Email, req.APIKey)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingField):
			writePlainError(w, http.StatusBadRequest, "All fields are required")
		case errors.Is(err, service.ErrMissingKey):
			writePlainError(w, http.StatusBadRequest, "api_key is required")
		case errors.Is(err, service.ErrMalformedKey):
			writePlainError(w, http.StatusBadRequest, "API key format is invalid")
		case errors.Is(err, store.ErrDuplicateKey):
			writePlainError(w, http.StatusBadRequest, "API key already exists, generate a new one")
		default:
			writePlainError(w, http.StatusInternalServerError, "Failed to register API key")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": user.ID,
		"api_key": keyValue,
	})
}

// Create mints a fresh key string without persisting anything. Clients feed
// the result back through POST /user to bind it to an account.
// POST /create
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	keyValue, err := keygen.Generate()
	if err != nil {
		writePlainError(w, http.StatusInternalServerError, "Failed to generate API key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"api_key": keyValue})
}

type validateRequest struct {
	APIKey string `json:"apiKey"`
}

// Validate is the cekapi check: the key comes from the request body's apiKey
// field or, failing that, a Bearer Authorization header.
// POST /cekapi
func (h *KeyHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	_ = readJSON(r, &req) // an empty or non-JSON body just means no body key

	rawKey := extractKey(req.APIKey, r)

	if err := h.keys.Validate(r.Context(), rawKey); err != nil {
		status := http.StatusInternalServerError
		message := "Server error during verification"
		switch {
		case errors.Is(err, service.ErrMissingKey):
			status, message = http.StatusBadRequest, "apiKey is required"
		case errors.Is(err, service.ErrMalformedKey):
			status, message = http.StatusBadRequest, "apiKey format is invalid"
		case errors.Is(err, service.ErrUnknownKey):
			status, message = http.StatusUnauthorized, "API key not recognized"
		case errors.Is(err, service.ErrInactiveKey):
			status, message = http.StatusForbidden, "API key is inactive"
		}
		writeJSON(w, status, map[string]interface{}{"valid": false, "error": message})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true})
}
