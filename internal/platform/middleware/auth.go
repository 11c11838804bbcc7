package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/httputil"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/requestcontext"
)

// VerifyToken reports the subject and role carried by a valid operator
// token. jwttoken.Service.Identity satisfies it as a method value, keeping
// this package free of JWT internals.
type VerifyToken func(token string) (subject, role string, err error)

// roleAdmin is required for suspend, reinstate, and certificate operations.
const roleAdmin = "admin"

// RequireAdmin gates endpoints behind a bearer token carrying the admin
// role. The authenticated subject lands in the request context for audit
// logs and event metadata.
func RequireAdmin(verify VerifyToken, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "admin access denied",
					"reason", "missing bearer token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			subject, role, err := verify(token)
			if err != nil {
				logger.WarnContext(ctx, "admin access denied",
					"reason", "invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			if role != roleAdmin {
				logger.WarnContext(ctx, "admin access denied",
					"reason", "insufficient role",
					"subject", subject,
					"role", role,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAdminSubject(ctx, subject)))
		})
	}
}
