package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jmcleod/omiassist/auth"
)

type contextKey int

const identityKey contextKey = iota

// authenticate resolves the caller for route before the handler runs and
// stores the identity on the request context. Failures never reveal which
// credential was wrong.
func (a *API) authenticate(route auth.Route) func(http.Handler) http.Handler {
	kind := route.AuthKind()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.resolver.Resolve(r.Context(), r.Header, kind)
			if err != nil {
				if errors.Is(err, auth.ErrInternal) {
					writeInternalError(w, "authentication unavailable", err)
					return
				}
				a.audit.logFailure(AuditAuthFailure, r, err.Error(),
					slog.String("route", route.Path()),
					slog.String("kind", kind.String()))
				mapError(w, err)
				return
			}
			if id != nil && id.Impersonated() {
				a.audit.logEvent(AuditAdminImpersonation, r, id.Account.ID,
					slog.String("route", route.Path()))
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// identityFromContext returns the caller resolved by authenticate. It is
// nil on routes that require no session.
func identityFromContext(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}
