package api

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/jmcleod/omiassist/auth"
)

// corsMiddleware lets the configured frontend origins call the API with
// credentials. The session cookie is only attached to cross-site requests
// when credentials are allowed, and the token key header must be listed for
// the browser to send it. With no configured origins no CORS headers are
// written at all, since an empty list means "any origin" to the cors package.
func (a *API) corsMiddleware() func(http.Handler) http.Handler {
	if len(a.allowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	headers := append([]string{"Content-Type"}, auth.Headers...)
	return cors.Handler(cors.Options{
		AllowedOrigins:   a.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   headers,
		AllowCredentials: true,
		MaxAge:           300,
	})
}
