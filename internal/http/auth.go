package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	applog "spendwise/internal/log"
)

type ownerKey struct{}

// Authenticator verifies HS256 bearer tokens and puts the owner id of the
// token into the request context.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Middleware rejects requests without a valid token with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			writeError(w, r, &AuthError{Message: "Missing or invalid token"})
			return
		}

		owner, err := a.Owner(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
				WarnContext(r.Context(), "Token rejected", applog.FieldError, err.Error())
			writeError(w, r, &AuthError{Message: "Invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Owner validates the token and returns its owner id, read from the userId
// claim or, failing that, from sub.
func (a *Authenticator) Owner(token string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}

	if owner, ok := claims["userId"].(string); ok && owner != "" {
		return owner, nil
	}
	if owner, err := claims.GetSubject(); err == nil && owner != "" {
		return owner, nil
	}
	return "", errors.New("token has no owner claim")
}

// IssueToken signs a token for owner, valid for ttl.
func IssueToken(secret []byte, owner string, ttl time.Duration) (string, error) {
	if owner == "" {
		return "", errors.New("empty owner")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": owner,
		"sub":    owner,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// OwnerFromContext returns the authenticated owner id.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}
