// Package pkce generates Proof Key for Code Exchange verifier/challenge pairs (RFC 7636, S256).
package pkce

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	// Method is the code_challenge_method sent with every authorization request.
	Method = "S256"

	// DefaultLength is the verifier length used by [New].
	DefaultLength = 64

	MinLength = 43
	MaxLength = 128
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// bytes at or above this bound are rejected so every alphabet index is equally likely
const rejectAbove = 256 - (256 % len(alphabet))

// ErrInvalidLength is returned for verifier lengths outside 43..128.
var ErrInvalidLength = fmt.Errorf("pkce: verifier length must be between %d and %d", MinLength, MaxLength)

// Pair is a verifier and the challenge derived from it.
type Pair struct {
	Verifier  string
	Challenge string
}

// New returns a fresh [Pair] with a [DefaultLength] verifier.
func New() (Pair, error) {
	return NewWithLength(DefaultLength)
}

// NewWithLength returns a fresh [Pair] with a verifier of n characters.
func NewWithLength(n int) (Pair, error) {
	verifier, err := randomString(n)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Verifier: verifier, Challenge: Challenge(verifier)}, nil
}

// Challenge derives the S256 challenge: base64url(sha256(verifier)) without padding.
func Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

func randomString(n int) (string, error) {
	if n < MinLength || n > MaxLength {
		return "", ErrInvalidLength
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("pkce: failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
