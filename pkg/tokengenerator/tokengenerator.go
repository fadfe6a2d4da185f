package tokengenerator

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTokenExpiry is the session token lifetime used when the
// configuration does not override it.
const DefaultAccessTokenExpiry = 24 * time.Hour

// Claims are the session token claims. The subject carries the local
// user id; display fields ride along so clients need no extra lookup.
type Claims struct {
	XUsername    string `json:"x_username,omitempty"`
	XDisplayName string `json:"x_display_name,omitempty"`
	jwt.RegisteredClaims
}

// TokenGenerator issues and parses session tokens.
type TokenGenerator interface {
	// GenerateToken signs a token for the subject, returning the token
	// string, its JWT ID, and its expiry.
	GenerateToken(subject string, expiry time.Duration, extraClaims map[string]string) (string, string, time.Time, error)

	// ParseToken validates a token string and returns its claims.
	ParseToken(tokenStr string) (*Claims, error)
}

// JwtTokenGenerator implements TokenGenerator with HS256.
type JwtTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator.
func NewJwtTokenGenerator(secret, issuer, audience string) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
	}
}

// GenerateToken signs a token for the given subject. Each token carries a
// fresh JWT ID, which the sessions package records for revocation.
func (g *JwtTokenGenerator) GenerateToken(subject string, expiry time.Duration, extraClaims map[string]string) (string, string, time.Time, error) {
	now := time.Now().UTC()
	claims := Claims{
		XUsername:    extraClaims["x_username"],
		XDisplayName: extraClaims["x_display_name"],
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    g.Issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims.ID, claims.ExpiresAt.Time, nil
}

// ParseToken validates a token string (signature, expiry, issuer) and
// returns its claims.
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(g.Secret), nil
	}, jwt.WithIssuer(g.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	return claims, nil
}
