package rpc

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// requireAuth verifies the bearer token on mutating requests. Tokens are
// HS256 JWTs signed with the configured secret. An empty secret disables
// authentication for local runs.
func (s *Server) requireAuth(r *http.Request) *RPCError {
	if len(s.authSecret) == 0 {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return rpcErr(codeUnauthorized, "unauthorized", "missing Authorization header")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return rpcErr(codeUnauthorized, "unauthorized", "expected bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.authSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return rpcErr(codeUnauthorized, "unauthorized", "invalid token")
	}
	return nil
}

// IssueToken signs a short-lived service token against the given secret.
// Exposed for operator tooling and tests.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
