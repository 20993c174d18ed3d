package middleware

import "net/http"

// DefaultBodyLimit fits a full-length subtitle track plus run parameters in
// a single JSON request with room to spare.
const DefaultBodyLimit int64 = 16 << 20

// MaxBodySize caps request bodies at maxBytes. Reads past the cap fail, and
// the handlers' JSON decoders surface that as a bad request.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
