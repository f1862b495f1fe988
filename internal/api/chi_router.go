// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/config"
	"github.com/parley-im/parley/internal/middleware"
)

// Router assembles the Chi route tree around the handlers.
type Router struct {
	cfg     *config.Config
	handler *Handler
	auth    *auth.Middleware
}

// NewRouter creates a Router.
func NewRouter(cfg *config.Config, handler *Handler, authmw *auth.Middleware) *Router {
	return &Router{cfg: cfg, handler: handler, auth: authmw}
}

// Setup builds the full HTTP handler: global middleware, public auth
// endpoints with strict rate limiting, and authenticated API routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/v1/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Credential endpoints get the strictest limit: bcrypt is expensive
	// and login is the brute force target.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		if !router.cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(10, router.cfg.Security.RateLimitWindow))
		}
		r.Post("/register", router.handler.Register)
		r.Post("/login", router.handler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		if !router.cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(router.cfg.Security.RateLimitReqs, router.cfg.Security.RateLimitWindow))
		}
		r.Use(router.auth.Authenticate)

		r.Get("/users", router.handler.Users)

		r.Post("/chats", router.handler.CreateChat)
		r.Post("/chats/group", router.handler.CreateGroupChat)
		r.Get("/chats", router.handler.Chats)
		r.Get("/chats/{chatID}/messages", router.handler.Messages)
		r.Post("/chats/{chatID}/read", router.handler.MarkRead)

		r.Delete("/messages/{messageID}", router.handler.DeleteMessage)

		r.Get("/ws", router.handler.WebSocket)
	})

	return r
}

func (router *Router) corsOrigins() []string {
	if len(router.cfg.Security.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return router.cfg.Security.CORSOrigins
}
