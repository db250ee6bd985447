// Package keygen generates and syntactically validates API key strings.
package keygen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// Prefix is the fixed literal every key starts with. It is wire-visible and
// must not change: clients and stored keys depend on it.
const Prefix = "sk-sm-v1-"

// payloadBytes is the amount of randomness behind each key. 24 bytes hex
// encodes to 48 characters.
const payloadBytes = 24

// Generate produces a new key string: Prefix followed by 48 uppercase hex
// characters from a cryptographically secure random source. The key is the
// sole bearer credential, so crypto/rand is a hard requirement here.
func Generate() (string, error) {
	buf := make([]byte, payloadBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key payload: %w", err)
	}
	return Prefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// IsWellFormed reports whether candidate starts with the key prefix. This is
// a cheap pre-filter run before any store lookup; it deliberately does not
// inspect the payload length or charset.
func IsWellFormed(candidate string) bool {
	return strings.HasPrefix(candidate, Prefix)
}
