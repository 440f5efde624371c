package middleware

import (
	"net"
	"net/http"
	"strings"
)

// HSTS adds the Strict-Transport-Security header: HTTPS for one year,
// including subdomains.
func HSTS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// SecureCookies wraps the ResponseWriter to enforce secure cookie flags on
// every Set-Cookie header the handlers emit.
func SecureCookies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &secureCookieWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
	})
}

type secureCookieWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *secureCookieWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *secureCookieWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	cookies := w.ResponseWriter.Header()["Set-Cookie"]
	if len(cookies) > 0 {
		w.ResponseWriter.Header().Del("Set-Cookie")
		for _, cookie := range cookies {
			w.ResponseWriter.Header().Add("Set-Cookie", ensureSecureCookie(cookie))
		}
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

// ensureSecureCookie adds Secure, HttpOnly, and SameSite attributes to a
// cookie unless already present.
func ensureSecureCookie(cookie string) string {
	parts := strings.Split(cookie, ";")

	hasSecure := false
	hasHTTPOnly := false
	hasSameSite := false

	for i, p := range parts {
		p = strings.TrimSpace(p)
		lower := strings.ToLower(p)

		switch {
		case lower == "secure":
			hasSecure = true
		case lower == "httponly":
			hasHTTPOnly = true
		case strings.HasPrefix(lower, "samesite"):
			hasSameSite = true
		}

		parts[i] = p
	}

	if !hasSecure {
		parts = append(parts, "Secure")
	}
	if !hasHTTPOnly {
		parts = append(parts, "HttpOnly")
	}
	if !hasSameSite {
		parts = append(parts, "SameSite=Strict")
	}

	return strings.Join(parts, "; ")
}

// RequireHTTPS redirects plain HTTP requests to HTTPS. Only for when the app
// terminates TLS itself, not behind a reverse proxy.
func RequireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isHTTPS := r.TLS != nil ||
			r.Header.Get("X-Forwarded-Proto") == "https" ||
			r.URL.Scheme == "https"

		if !isHTTPS {
			httpsURL := "https://" + r.Host + r.RequestURI
			http.Redirect(w, r, httpsURL, http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// IsHostAllowed validates a host against the allowed hosts list, ignoring
// ports. An empty list allows every host. Used to keep the HTTP-to-HTTPS
// redirect from being poisoned by a forged Host header.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}

	host = strings.ToLower(strings.TrimSpace(host))
	hostWithoutPort, _, err := net.SplitHostPort(host)
	if err != nil {
		hostWithoutPort = host
	}

	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		allowedWithoutPort := allowed
		if idx := strings.Index(allowed, ":"); idx != -1 {
			allowedWithoutPort = allowed[:idx]
		}

		if host == allowed || hostWithoutPort == allowedWithoutPort {
			return true
		}
	}

	return false
}
