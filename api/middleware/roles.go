package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/sealcard-backend/api/responses"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

// RequireRole gates a route group on the caller's role. It runs after Auth;
// a request that reaches it without a principal is answered 401, a principal
// with another role 403.
func RequireRole(logg *logger.Logger, allowed ...enums.UserRole) func(http.Handler) http.Handler {
	anonymous := pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	denied := pkgerrors.New(pkgerrors.CodeForbidden, "role required").
		WithDetails(map[string]any{"allowed": allowed})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, ok := PrincipalFromContext(ctx)
			switch {
			case !ok:
				responses.WriteError(ctx, logg, w, anonymous)
			case !slices.Contains(allowed, p.Role):
				if logg != nil {
					logg.Debug(logg.WithActorRole(ctx, string(p.Role)), "role not permitted on route")
				}
				responses.WriteError(ctx, logg, w, denied)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
