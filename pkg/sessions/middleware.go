package sessions

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "sessions context value " + k.name
}

var authUserIDKey = &contextKey{"AuthUserID"}

// AuthUserID returns the authenticated user id stored by Authenticator.
func AuthUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(authUserIDKey).(uuid.UUID)
	return userID, ok
}

// NewAuth builds the jwtauth keyset that verifies issued session
// tokens.
func NewAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// TokenFromRequest extracts the access token from the Authorization
// header, falling back to the access_token cookie.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return tokenFromCookie(r)
}

func tokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie("access_token")
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Verifier returns middleware that checks the token signature and
// expiry. Pair it with Authenticator, which checks the session store.
func Verifier(auth *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(auth, jwtauth.TokenFromHeader, tokenFromCookie)
}

// Authenticator returns middleware that rejects requests whose verified
// token has no live session behind it, and stores the user id in the
// request context.
func (s *Service) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			http.Error(w, "missing or invalid access token", http.StatusUnauthorized)
			return
		}

		jti, _ := claims["jti"].(string)
		subject, _ := claims["sub"].(string)
		userID, err := uuid.Parse(subject)
		if err != nil || jti == "" {
			http.Error(w, "missing or invalid access token", http.StatusUnauthorized)
			return
		}

		session, err := s.repository.GetByJTI(r.Context(), jti)
		if err != nil {
			slog.Debug("rejected token without session", "jti", jti, "error", err)
			http.Error(w, "invalid or expired session", http.StatusUnauthorized)
			return
		}
		if !session.Active(time.Now()) || session.UserID != userID {
			http.Error(w, "invalid or expired session", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authUserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
