package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	pair, err := Generate()
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	if len(pair.Verifier) < 43 {
		t.Errorf("verifier too short: got %d characters, want at least 43", len(pair.Verifier))
	}
	if len(pair.Verifier) > 128 {
		t.Errorf("verifier too long: got %d characters, want at most 128", len(pair.Verifier))
	}
	if !isValidVerifier(pair.Verifier) {
		t.Errorf("verifier contains invalid characters: %s", pair.Verifier)
	}
	if pair.Challenge == "" {
		t.Error("challenge is empty")
	}
	if pair.Challenge == pair.Verifier {
		t.Error("S256 challenge should differ from verifier")
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		pair, err := Generate()
		if err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		if seen[pair.Verifier] {
			t.Fatalf("duplicate verifier generated: %s", pair.Verifier)
		}
		seen[pair.Verifier] = true
	}
}

func TestChallengeFromVerifier(t *testing.T) {
	pair, err := Generate()
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	hash := sha256.Sum256([]byte(pair.Verifier))
	want := base64.RawURLEncoding.EncodeToString(hash[:])
	if pair.Challenge != want {
		t.Errorf("challenge = %s, want base64url(sha256(verifier)) = %s", pair.Challenge, want)
	}

	// The encoding must carry no padding.
	if strings.Contains(pair.Challenge, "=") {
		t.Errorf("challenge contains padding: %s", pair.Challenge)
	}
	if strings.Contains(pair.Verifier, "=") {
		t.Errorf("verifier contains padding: %s", pair.Verifier)
	}
}

func TestValidateVerifier(t *testing.T) {
	pair, err := Generate()
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	if err := ValidateVerifier(pair.Verifier, pair.Challenge); err != nil {
		t.Errorf("ValidateVerifier() failed for a generated pair: %v", err)
	}
}

func TestValidateVerifierErrors(t *testing.T) {
	tests := []struct {
		name      string
		verifier  string
		challenge string
	}{
		{
			name:      "empty verifier",
			verifier:  "",
			challenge: "challenge",
		},
		{
			name:      "empty challenge",
			verifier:  strings.Repeat("a", 43),
			challenge: "",
		},
		{
			name:      "verifier too short",
			verifier:  "short",
			challenge: "challenge",
		},
		{
			name:      "verifier too long",
			verifier:  strings.Repeat("a", 129),
			challenge: "challenge",
		},
		{
			name:      "invalid verifier characters",
			verifier:  strings.Repeat("!", 43),
			challenge: "challenge",
		},
		{
			name:      "challenge mismatch",
			verifier:  strings.Repeat("a", 43),
			challenge: "not-the-derived-challenge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateVerifier(tt.verifier, tt.challenge); err == nil {
				t.Error("ValidateVerifier() should have returned an error")
			}
		})
	}
}

func TestIsValidVerifier(t *testing.T) {
	tests := []struct {
		name     string
		verifier string
		valid    bool
	}{
		{
			name:     "full unreserved set",
			verifier: "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~",
			valid:    true,
		},
		{
			name:     "invalid character !",
			verifier: "abc!def",
			valid:    false,
		},
		{
			name:     "invalid character space",
			verifier: "abc def",
			valid:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidVerifier(tt.verifier); got != tt.valid {
				t.Errorf("isValidVerifier(%s) = %v, want %v", tt.verifier, got, tt.valid)
			}
		})
	}
}
