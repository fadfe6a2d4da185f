package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// ChallengeMethodS256 is the only challenge method this service sends to
// providers. The "plain" method offers no protection against code
// interception and is deliberately not supported.
const ChallengeMethodS256 = "S256"

// Pair holds a PKCE code verifier and its derived S256 challenge.
// The verifier stays server-side with the pending authorization; the
// challenge is sent to the provider's authorization endpoint.
type Pair struct {
	Verifier  string
	Challenge string
}

// Generate creates a new verifier/challenge pair from 32 bytes of
// cryptographically secure randomness. The verifier is base64url encoded
// without padding (43 characters), per RFC 7636.
func Generate() (*Pair, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(bytes)
	return &Pair{
		Verifier:  verifier,
		Challenge: ChallengeFromVerifier(verifier),
	}, nil
}

// ChallengeFromVerifier derives the S256 code challenge for a verifier:
// base64url(sha256(ascii(verifier))) without padding.
func ChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// ValidateVerifier checks that a stored verifier re-derives the challenge
// that was sent at initiation time.
func ValidateVerifier(verifier, challenge string) error {
	if verifier == "" {
		return fmt.Errorf("code verifier cannot be empty")
	}
	if challenge == "" {
		return fmt.Errorf("code challenge cannot be empty")
	}
	if len(verifier) < 43 || len(verifier) > 128 {
		return fmt.Errorf("code verifier must be between 43 and 128 characters")
	}
	if !isValidVerifier(verifier) {
		return fmt.Errorf("code verifier contains invalid characters")
	}
	if ChallengeFromVerifier(verifier) != challenge {
		return fmt.Errorf("code verifier does not match challenge")
	}
	return nil
}

// isValidVerifier checks the RFC 7636 unreserved character set.
func isValidVerifier(verifier string) bool {
	const allowed = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
	for _, char := range verifier {
		if !strings.ContainsRune(allowed, char) {
			return false
		}
	}
	return true
}
