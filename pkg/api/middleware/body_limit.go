package middleware

import (
	"net/http"
)

// BodySizeLimit creates middleware that limits the size of request bodies.
// A declared Content-Length over the limit is rejected before the handler
// runs; otherwise reads past maxBytes fail inside the handler.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
