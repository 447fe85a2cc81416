package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

var allowedOrigins = map[string]bool{
	"capacitor://localhost": true,
	"http://localhost:8080": true,
	"http://localhost:5173": true,
	"test":                  true,
}

// Cors allows requests from the local dashboard origins and the app shell.
// Requests without an Origin header (the ios app, curl) pass through as-is.
func Cors() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !allowedOrigins[origin] {
				log.Tracef("cors: origin [%s] not allowed", origin)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
