package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"hemobank/pkg/requestcontext"
)

// JWTValidator defines the interface for validating bearer tokens. Token
// issuance belongs to the external identity provider; we only verify.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	SubjectID string
	Role      string
}

// Roles recognized on tokens.
const (
	RoleDonor = "donor"
	RoleAdmin = "admin"
)

// RequireAuth validates the bearer token and injects the donor identity into
// the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireRole(validator, logger, "")
}

// RequireAdmin validates the bearer token and additionally requires the admin
// role. The admin ID is injected for approved_by attribution.
func RequireAdmin(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireRole(validator, logger, RoleAdmin)
}

func requireRole(validator JWTValidator, logger *slog.Logger, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			if role != "" && claims.Role != role {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}

			if claims.Role == RoleAdmin {
				ctx = requestcontext.WithAdminID(ctx, claims.SubjectID)
			} else {
				ctx = requestcontext.WithDonorID(ctx, claims.SubjectID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
