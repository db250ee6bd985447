package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stackmint/keysmith/internal/model"
)

// writeJSON serializes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the structured admin error envelope.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writePlainError writes the flat {"error": "..."} shape the public
// registration endpoints have always used.
func writePlainError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// readJSON decodes the request body as JSON into v, closing the body.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// extractKey pulls the raw API key from a request: the body field wins over
// a Bearer-scheme Authorization header. The result is whitespace-trimmed and
// may be empty.
func extractKey(bodyKey string, r *http.Request) string {
	if k := strings.TrimSpace(bodyKey); k != "" {
		return k
	}
	h := r.Header.Get("Authorization")
	if len(h) >= 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
