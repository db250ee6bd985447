package keygen

import (
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !strings.HasPrefix(key, Prefix) {
		t.Errorf("key %q missing prefix %q", key, Prefix)
	}

	payload := strings.TrimPrefix(key, Prefix)
	if len(payload) != 48 {
		t.Errorf("got payload length %d, want 48", len(payload))
	}
	for _, c := range payload {
		isDigit := c >= '0' && c <= '9'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isUpperHex {
			t.Errorf("payload contains non-uppercase-hex character %q", c)
		}
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate key generated: %q", key)
		}
		seen[key] = true
	}
}

func TestIsWellFormed(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"generated key", Prefix + strings.Repeat("A", 48), true},
		{"prefix only", Prefix, true},
		{"wrong prefix", "sk-other-v1-ABCDEF", false},
		{"empty", "", false},
		{"lowercase prefix variant", "SK-SM-V1-ABCDEF", false},
		{"payload without prefix", strings.Repeat("A", 48), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWellFormed(tt.key); got != tt.want {
				t.Errorf("IsWellFormed(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
