package api

import (
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmcleod/omiassist/auth"
)

type openAPIDoc struct {
	OpenAPI string                            `yaml:"openapi"`
	Paths   map[string]map[string]interface{} `yaml:"paths"`
}

func documentedRoutes(t *testing.T) []string {
	t.Helper()
	var doc openAPIDoc
	require.NoError(t, yaml.Unmarshal(openapiSpec, &doc))
	require.True(t, strings.HasPrefix(doc.OpenAPI, "3."), "openapi version %q", doc.OpenAPI)

	var routes []string
	for path, methods := range doc.Paths {
		for method := range methods {
			if strings.HasPrefix(method, "x-") || method == "parameters" {
				continue
			}
			routes = append(routes, strings.ToUpper(method)+" "+path)
		}
	}
	sort.Strings(routes)
	return routes
}

// TestOpenAPIDrift compares the routes the router serves with the paths
// documented in openapi.yaml.
func TestOpenAPIDrift(t *testing.T) {
	// Router only registers handlers, so a zero API is enough.
	router := (&API{}).Router()

	var served []string
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.TrimRight(route, "/")
		if route == "/openapi.yaml" || strings.HasPrefix(route, "/docs") || strings.HasPrefix(route, "/redoc") {
			return nil
		}
		served = append(served, method+" "+route)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(served)

	assert.Equal(t, documentedRoutes(t), served)
}

func TestOpenAPIDocumentsEveryRoute(t *testing.T) {
	var want []string
	for _, r := range auth.Routes {
		want = append(want, r.Method()+" /"+r.Path())
	}
	sort.Strings(want)
	assert.Equal(t, want, documentedRoutes(t))
}
