package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractKey(t *testing.T) {
	tests := []struct {
		name       string
		bodyKey    string
		authHeader string
		want       string
	}{
		{"body key only", "sk-sm-v1-AAA", "", "sk-sm-v1-AAA"},
		{"body key trimmed", "  sk-sm-v1-AAA \n", "", "sk-sm-v1-AAA"},
		{"header fallback", "", "Bearer sk-sm-v1-BBB", "sk-sm-v1-BBB"},
		{"lowercase scheme", "", "bearer sk-sm-v1-BBB", "sk-sm-v1-BBB"},
		{"body wins over header", "sk-sm-v1-AAA", "Bearer sk-sm-v1-BBB", "sk-sm-v1-AAA"},
		{"whitespace body falls back to header", "   ", "Bearer sk-sm-v1-BBB", "sk-sm-v1-BBB"},
		{"non-bearer scheme ignored", "", "Basic dXNlcjpwYXNz", ""},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/cekapi", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}
			if got := extractKey(tt.bodyKey, r); got != tt.want {
				t.Errorf("extractKey(%q) = %q, want %q", tt.bodyKey, got, tt.want)
			}
		})
	}
}

func TestWriteErrorShapes(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusNotFound, "missing")

	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error.Code != http.StatusNotFound || envelope.Error.Message != "missing" {
		t.Errorf("got %+v, want code 404 message missing", envelope.Error)
	}

	rec = httptest.NewRecorder()
	writePlainError(rec, http.StatusBadRequest, "bad input")

	var flat map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&flat); err != nil {
		t.Fatalf("decode flat error: %v", err)
	}
	if flat["error"] != "bad input" {
		t.Errorf("got %v, want error=bad input", flat)
	}
}
