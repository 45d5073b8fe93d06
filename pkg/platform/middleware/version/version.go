// Package version tags requests with the API version of the route they
// matched.
package version

import (
	"net/http"

	"creditrisk/pkg/requestcontext"
)

// V1 is the only published API version.
const V1 = "v1"

// ExtractVersion sets version on the request context. Mount it inside the
// versioned subrouter:
//
//	r.Route("/api/v1", func(v1 chi.Router) {
//	    v1.Use(version.ExtractVersion(version.V1))
//	})
func ExtractVersion(version string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("API-Version", version)
			ctx := requestcontext.WithAPIVersion(r.Context(), version)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
