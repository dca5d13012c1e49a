package server

import (
	"net"
	"net/http"
	"time"
)

// withTimeout wraps a handler with the configured write timeout.
// Requests that exceed it receive 503 with a JSON body.
func (s *Server) withTimeout(h http.HandlerFunc) http.Handler {
	timeout := s.cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	inner := h
	if s.handlerDelay > 0 {
		inner = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(s.handlerDelay):
			case <-r.Context().Done():
				return
			}
			h(w, r)
		}
	}
	return http.TimeoutHandler(
		contentTypeWrapper(inner),
		timeout,
		`{"error": "request timed out"}`,
	)
}

// contentTypeWrapper sets the JSON content type before the
// handler runs, so the timeout body is served as JSON too.
func contentTypeWrapper(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	})
}

// corsMiddleware allows the frontend dev server to talk to the
// API from a different origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods",
			"GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logMiddleware logs each request with method, path and duration.
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// subjectFor identifies the caller for rate limiting. Local
// deployments see one host per user, so the remote IP is enough.
func subjectFor(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return "anon"
	}
	return host
}
