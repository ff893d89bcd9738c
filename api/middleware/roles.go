package middleware

import (
	"net/http"

	"github.com/crosscartapp/crosscart-backend/api/responses"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
)

// RequireRole rejects requests whose authenticated role does not match.
// The admin manual-order routes hang off this.
func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	denied := pkgerrors.New(pkgerrors.CodeForbidden, role+" role required")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
