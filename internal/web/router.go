// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the auth service over HTTP with cookie-carried
// session tokens.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/holomush/authd/internal/config"
)

// Defaults applied to zero Options fields.
const (
	DefaultRequestTimeout  = 30 * time.Second
	DefaultSessionLifetime = 24 * time.Hour
	DefaultRateLimit       = 60
	DefaultRateWindow      = time.Minute
)

// Options configures the router.
type Options struct {
	// Version is reported by the root endpoint.
	Version string
	// RequestTimeout bounds each request.
	RequestTimeout time.Duration
	// SessionLifetime is the session cookie Max-Age. It should match the
	// token lifetime.
	SessionLifetime time.Duration
	// CORSOrigins are glob patterns of allowed origins.
	CORSOrigins []string
	// RateLimit requests per RateWindow and client IP on /api/auth.
	RateLimit  int
	RateWindow time.Duration
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	// Production enables HTTPS redirects and HSTS.
	Production bool
	// TrustProxy takes the client IP from X-Forwarded-For, X-Real-IP or
	// True-Client-IP. Enable it only behind a proxy that sets them, or the
	// per-IP rate limit can be sidestepped.
	TrustProxy bool
	Logger     *slog.Logger
	Metrics    *Metrics
}

// OptionsFromConfig derives router options from the service config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Version:         cfg.App.Version,
		RequestTimeout:  cfg.HTTP.RequestTimeout,
		SessionLifetime: cfg.Auth.TokenLifetime,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		RateLimit:       cfg.HTTP.RateLimit,
		RateWindow:      cfg.HTTP.RateWindow,
		SecureCookies:   cfg.SecureCookies(),
		Production:      cfg.IsProduction(),
		TrustProxy:      cfg.HTTP.TrustProxy,
	}
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc AuthService, opts Options) (http.Handler, error) {
	if svc == nil {
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("auth service is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.SessionLifetime <= 0 {
		opts.SessionLifetime = DefaultSessionLifetime
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = DefaultRateWindow
	}

	origins, err := config.CompileOrigins(opts.CORSOrigins)
	if err != nil {
		return nil, err
	}

	h := &handler{
		service:  svc,
		validate: newValidator(),
		cookies:  cookieJar{maxAge: opts.SessionLifetime, secure: opts.SecureCookies},
		version:  opts.Version,
		logger:   opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestIDHeader)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(opts.Metrics.Middleware)
	r.Use(securityHeaders(opts.Production))
	r.Use(corsHandler(origins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.Get("/", h.root)
	r.Get("/health", h.health)

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(rateLimiter(opts.RateLimit, opts.RateWindow))
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)
	})

	return r, nil
}
