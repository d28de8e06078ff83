// Package token generates and validates file tokens: the 9-character
// uppercase alphanumeric identifiers that bind a note row to its file.
package token

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Length is the number of characters in a file token.
	Length = 9
)

var tokenRe = regexp.MustCompile(`^[A-Z0-9]{9}$`)

// New returns a fresh random file token.
func New() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: read random: %w", err)
	}
	out := make([]byte, Length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// Valid reports whether s is a well-formed file token.
func Valid(s string) bool {
	return tokenRe.MatchString(s)
}
