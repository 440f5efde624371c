package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"horizon/internal/shared/config"
	"horizon/internal/shared/middleware"
)

// Server bundles the main API listener with the optional HTTP-to-HTTPS
// redirect listener.
type Server struct {
	main     *http.Server
	redirect *http.Server
	tls      config.TLS
}

func NewServer(handler http.Handler, cfg *config.Config) *Server {
	s := &Server{
		main: &http.Server{
			Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		tls: cfg.TLS,
	}

	if cfg.TLS.Enabled && cfg.TLS.RedirectHTTP {
		s.redirect = &http.Server{
			Addr:         ":80",
			Handler:      redirectToHTTPS(cfg.Server.AllowedHosts),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}

	return s
}

// Start launches the listeners. Listen failures on the main server are
// fatal; the process has nothing to do without it.
func (s *Server) Start() {
	if s.redirect != nil {
		go func() {
			log.Println("HTTP redirect server starting on :80")
			if err := s.redirect.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP redirect server error: %v", err)
			}
		}()
	}

	go func() {
		var err error
		if s.tls.Enabled {
			log.Printf("HTTPS server starting on %s", s.main.Addr)
			err = s.main.ListenAndServeTLS(s.tls.CertPath, s.tls.KeyPath)
		} else {
			log.Printf("HTTP server starting on %s", s.main.Addr)
			err = s.main.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()
}

// Shutdown drains both listeners within the given timeout.
func (s *Server) Shutdown(timeout time.Duration) {
	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.redirect != nil {
		if err := s.redirect.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down HTTP redirect server: %v", err)
		}
	}

	if err := s.main.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down main server: %v", err)
	}

	log.Println("Server stopped")
}

// redirectToHTTPS sends every allowed-host request to its HTTPS equivalent.
func redirectToHTTPS(allowedHosts []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Header.Get("X-Forwarded-Host")
		if host == "" {
			host = r.Host
		}

		if !middleware.IsHostAllowed(host, allowedHosts) {
			http.Error(w, "Invalid host", http.StatusBadRequest)
			return
		}

		canonical, _, err := net.SplitHostPort(host)
		if err != nil {
			canonical = host
		}

		http.Redirect(w, r, "https://"+canonical+r.RequestURI, http.StatusMovedPermanently)
	})
}
