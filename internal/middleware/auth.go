package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/walletapi/backend/internal/auth"
	"github.com/walletapi/backend/internal/ledger"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	claimsKey contextKey = "claims"
)

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Authenticator validates the bearer token and stores the caller in the request context.
func Authenticator(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := tokens.Parse(r.Context(), parts[1])
			if err != nil {
				if errors.Is(err, auth.ErrTokenRevoked) {
					unauthorized(w, "Token has been revoked")
					return
				}
				if !errors.Is(err, auth.ErrInvalidToken) {
					log.Printf("[AUTH] token check failed: %v", err)
				}
				unauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(WithUserID(ctx, claims.UserID)))
		})
	}
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok && userID > 0
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// ActorFromRequest describes the authenticated caller for the ledger engine.
func ActorFromRequest(r *http.Request) (ledger.Actor, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return ledger.Actor{}, false
	}

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	return ledger.Actor{
		AccountID: userID,
		IP:        ip,
		UserAgent: r.UserAgent(),
	}, true
}
