package middleware

import (
	"net/http"
	"strings"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	corsHeaders = []string{"Content-Type", "Accept"}
)

// CORS 允许浏览器跨域访问 API，并直接应答预检请求。
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		header := w.Header()
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Methods", strings.Join(corsMethods, ", "))
		header.Set("Access-Control-Allow-Headers", strings.Join(corsHeaders, ", "))
		header.Set("Access-Control-Max-Age", "86400")
		header.Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
