package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/awgman/awgman/pkg/httputil"
)

// APIKeyHeader is the request header carrying the shared secret.
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware gates requests behind a shared-secret header. With an
// empty configured key the middleware passes everything through, matching
// deployments that rely on network-level access control instead.
type APIKeyMiddleware struct {
	key string
}

// NewAPIKeyMiddleware creates middleware validating against the given key.
func NewAPIKeyMiddleware(key string) *APIKeyMiddleware {
	return &APIKeyMiddleware{key: key}
}

// Handler wraps an HTTP handler with the API key check.
func (m *APIKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.key != "" {
			provided := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(m.key)) != 1 {
				httputil.WriteUnauthorized(w, "invalid or missing API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
