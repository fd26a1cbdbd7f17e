package lockapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// claims is the minimal token shape condlockd expects: a caller identity
// and nothing else. There is no user/role model in this domain — a valid
// signature is the whole authorization decision.
type claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"clientId"`
}

type clientIDKey struct{}

// ClientIDFromContext returns the bearer token's clientId claim, or "" if
// the request was unauthenticated (JWT auth disabled).
func ClientIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(clientIDKey{}).(string)
	return v
}

// tokenAuthenticator validates bearer tokens signed with an HMAC secret.
type tokenAuthenticator struct {
	secret []byte
}

func newTokenAuthenticator(signingKey string) *tokenAuthenticator {
	if signingKey == "" {
		return nil
	}
	return &tokenAuthenticator{secret: []byte(signingKey)}
}

var errMissingBearer = errors.New("missing bearer token")

func (a *tokenAuthenticator) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", errMissingBearer
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	return c.ClientID, nil
}

// jwtAuth returns middleware enforcing bearer-token authentication. If auth
// is nil (no signing key configured), it is a no-op — condlockd is expected
// to run behind a trusted network boundary in that mode.
func jwtAuth(auth *tokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if auth == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID, err := auth.authenticate(r)
			if err != nil {
				Unauthorized(w, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), clientIDKey{}, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
