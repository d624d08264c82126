package server

import (
	"net/http"
	"slices"
	"strings"
)

const (
	corsMethods = "GET, POST, OPTIONS"
	corsHeaders = "Content-Type, Authorization"
	corsExpose  = "X-Original-Size, X-Compressed-Size"
)

// CORS admits requests without an Origin, origins on the allow-list, any
// origin when the list contains "*", and, outside production, any
// localhost or 127.0.0.1 origin. Other origins get 403.
func CORS(allowed []string, production bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Add("Vary", "Origin")
			if !originAllowed(origin, allowed, production) {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "origin not allowed by CORS"})
				return
			}
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", corsExpose)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string, production bool) bool {
	if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
		return true
	}
	if !production && (strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")) {
		return true
	}
	return false
}
