package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"docvault/pkg/requestcontext"
)

// TokenValidator parses a bearer token into the subject user ID.
type TokenValidator interface {
	Validate(tokenString string) (uuid.UUID, error)
}

// Subject is the resolved request identity every protected handler depends on.
type Subject struct {
	ID       uuid.UUID
	Role     string
	Verified bool
}

// SubjectResolver loads the current identity for a user ID. Resolution happens
// per request so role and verification changes take effect without reissuing
// tokens.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, id uuid.UUID) (Subject, error)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":%q,"message":%q}`, code, message))
}

// RequireAuth enforces a valid bearer token and injects the resolved subject
// into the request context.
func RequireAuth(validator TokenValidator, resolver SubjectResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid Authorization header")
				return
			}

			userID, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			subject, err := resolver.ResolveSubject(ctx, userID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - unknown subject",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx = requestcontext.WithUserID(ctx, subject.ID)
			ctx = requestcontext.WithRole(ctx, subject.Role)
			ctx = requestcontext.WithVerified(ctx, subject.Verified)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireVerified rejects authenticated users that have not completed OTP
// verification. Must run after RequireAuth.
func RequireVerified(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !requestcontext.Verified(ctx) {
				logger.WarnContext(ctx, "forbidden - account not verified",
					"user_id", requestcontext.UserID(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "account verification required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects non-admin subjects. Must run after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != "admin" {
				logger.WarnContext(ctx, "forbidden - admin required",
					"user_id", requestcontext.UserID(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
