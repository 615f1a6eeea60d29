package auth

import (
	"context"
	"net/http"
)

// CookieName is the HttpOnly cookie that carries the session token.
const CookieName = "access_token"

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the authenticated identity.
type contextKey string

const emailKey contextKey = "email"

// RequireAuth enforces authentication on protected routes.
//
// It reads the session token from the access_token cookie, verifies it once
// at the boundary, and stores the asserted email in the request context.
// Handlers then receive the identity explicitly via EmailFromContext — there
// is no implicit "current user" anywhere else. A missing or invalid token
// ends the request with 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := extractEmail(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"auth_error","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), emailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EmailFromContext retrieves the authenticated user's email from the
// request context. Returns ("", false) for anonymous requests.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok && email != ""
}

// extractEmail reads the session cookie and verifies the token in it.
func extractEmail(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}

	return tokens.Verify(cookie.Value)
}
