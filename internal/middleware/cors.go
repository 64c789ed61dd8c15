package middleware

import "net/http"

// CORS returns middleware that attaches the browser cross-origin headers to
// every response and short-circuits preflight requests with 204.
//
// allowOrigin is the site the SPA is served from ("*" in development). The
// headers are deliberately permissive beyond the origin — this API is already
// scoped to a single first-party frontend.
func CORS(allowOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Credentials", "true")

			// Preflight never reaches a handler.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
