package authz

import (
	"net/http"

	"log/slog"

	"github.com/meridian-logistics/backoffice/internal/resources"
)

// Middleware wires authorization guards for HTTP handlers.
type Middleware struct {
	Store  *Store
	Logger *slog.Logger
}

// Require ensures the current identity may perform op on the resource.
func (m Middleware) Require(r resources.Resource, op Op) func(http.Handler) http.Handler {
	return m.RequireAny(Check{Resource: r, Operation: op})
}

// RequireAny ensures at least one of the checks authorizes. An empty check
// list denies: a route exposed behind an explicit guard must not be open
// because the guard list is empty.
func (m Middleware) RequireAny(checks ...Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.Store != nil && m.Store.CanAny(checks...) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("authorization denied",
					slog.String("path", r.URL.Path),
					slog.Int("checks", len(checks)))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
