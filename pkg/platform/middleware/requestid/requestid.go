// Package requestid assigns every request a correlation id. Assessments use
// it as their request id when it is a UUID.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"creditrisk/pkg/requestcontext"
)

const Header = "X-Request-ID"

// maxInboundLength bounds ids accepted from callers; longer ones are replaced.
const maxInboundLength = 128

// Middleware reuses a well-formed inbound X-Request-ID or generates a new
// UUID, stores it on the context and echoes it in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !acceptable(id) {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func acceptable(id string) bool {
	if id == "" || len(id) > maxInboundLength {
		return false
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
