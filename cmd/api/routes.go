package main

import (
	"log"
	"net/http"

	httphandlers "horizon/internal/interfaces/http"
	"horizon/internal/shared/config"
	"horizon/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Public auth routes, rate limited per client IP
	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthPerSecond, cfg.RateLimit.AuthBurst)
	mux.Handle("/api/sign-up", authLimiter.Middleware(http.HandlerFunc(deps.AuthHandler.HandleSignUp)))
	mux.Handle("/api/sign-in", authLimiter.Middleware(http.HandlerFunc(deps.AuthHandler.HandleSignIn)))
	mux.HandleFunc("/api/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)

	mux.Handle("/api/users/me", authMiddleware(http.HandlerFunc(deps.AuthHandler.HandleMe)))
	mux.Handle("/api/banks/link-token", authMiddleware(http.HandlerFunc(deps.BankLinkHandler.HandleCreateLinkToken)))
	mux.Handle("/api/banks/link", authMiddleware(http.HandlerFunc(deps.BankLinkHandler.HandleExchange)))
	mux.Handle("/api/accounts", authMiddleware(http.HandlerFunc(deps.AccountsHandler.HandleList)))
	mux.Handle("/api/accounts/{id}", authMiddleware(http.HandlerFunc(deps.AccountsHandler.HandleDetail)))
	mux.Handle("/api/transfers", authMiddleware(http.HandlerFunc(deps.TransferHandler.HandleCreate)))

	// Apply global middleware
	handler := middleware.Logging(middleware.Telemetry(middleware.CORS(mux)))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
