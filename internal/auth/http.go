// ABOUTME: HTTP middleware guarding Query API calls with scoped bearer tokens
// ABOUTME: 401 for a bad or missing token, 403 when the token lacks the scope

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

func writeAuthError(w http.ResponseWriter, status int, challenge, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", challenge)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeAuthError(w, http.StatusUnauthorized, `Bearer realm="convo-gateway"`, msg)
}

func writeInsufficientScope(w http.ResponseWriter, scope string) {
	challenge := fmt.Sprintf(`Bearer realm="convo-gateway", error="insufficient_scope", scope=%q`, scope)
	writeAuthError(w, http.StatusForbidden, challenge, "insufficient scope")
}

// RequireScope creates an HTTP middleware that only lets through requests
// bearing a valid token that grants scope. The token subject is attached to
// the request context.
func RequireScope(verifier TokenVerifier, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeUnauthorized(w, errMsg)
				return
			}

			claims, err := verifier.Verify(token)
			if errors.Is(err, ErrExpiredToken) {
				writeUnauthorized(w, "token expired")
				return
			}
			if err != nil {
				writeUnauthorized(w, "invalid token")
				return
			}
			if !claims.HasScope(scope) {
				writeInsufficientScope(w, scope)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), claims.Subject)))
		})
	}
}
