package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicing-platform/backend/internal/server/httpx"
)

// Recover returns middleware that converts handler panics into an INTERNAL
// error response instead of tearing down the connection.
func Recover() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("server: panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
					httpx.WriteError(w, status.Error(codes.Internal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
