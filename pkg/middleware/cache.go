package middleware

import "net/http"

// NoStore marks every response as uncacheable. Used for per-user fragments
// and redirects whose outcome depends on session state.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
