package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"quickconnect/internal/auth"
)

type contextKey string

const credentialsKey contextKey = "credentials"

// Auth validates the gateway JWT and resolves the caller's credentials. The
// upstream token is injected into the request context explicitly; no handler
// reads ambient credential state.
func Auth(tokens *auth.TokenService, credentials *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			creds, err := credentials.Resolve(r.Context(), claims)
			if err != nil {
				if errors.Is(err, auth.ErrNoCredentials) {
					http.Error(w, "session expired", http.StatusUnauthorized)
					return
				}
				http.Error(w, "credential lookup failed", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCredentials(r.Context(), creds)))
		})
	}
}

// WithCredentials injects resolved credentials into ctx.
func WithCredentials(ctx context.Context, creds *auth.Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

// CredentialsFromContext retrieves the caller's credentials.
func CredentialsFromContext(ctx context.Context) (*auth.Credentials, bool) {
	val := ctx.Value(credentialsKey)
	if val == nil {
		return nil, false
	}
	creds, ok := val.(*auth.Credentials)
	return creds, ok
}
