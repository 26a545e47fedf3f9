// Package middleware provides HTTP middleware components for the ranking server.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/onnwee/skyrank/internal/auth"
)

// TokenValidator validates bearer access tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// AccessTokenQueryParam carries the token for WebSocket clients that cannot
// set request headers.
const AccessTokenQueryParam = "access_token"

// RequireAuth rejects requests without a valid access token and stores the
// token subject as the user id. A nil validator disables authentication.
func RequireAuth(validator TokenValidator, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				metrics.IncAuthFailure("missing")
				writeAuthError(w, r, "Missing bearer token")
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					metrics.IncAuthFailure("expired")
					writeAuthError(w, r, "Token has expired")
					return
				}
				metrics.IncAuthFailure("invalid")
				writeAuthError(w, r, "Invalid token")
				return
			}

			ctx := SetUserID(r.Context(), claims.Subject)
			UpdateResponseContext(w, ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(AccessTokenQueryParam)
}

func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	UpdateResponseContext(w, SetErrorCode(r.Context(), "auth_failed"))
	w.Header().Set("WWW-Authenticate", `Bearer realm="skyrank"`)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"auth_failed","message":"` + message + `"}}`))
}
