/*
Package handler provides the HTTP handlers and routing setup for the coedit server.

This file defines the main Router, applying middleware like request ids, CORS,
and IP-based rate limiting before delegating requests to the websocket upgrade
and health handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"coedit/internal/app/collab"
	"coedit/internal/configs"
	"coedit/internal/pkg/limiter"
	"coedit/internal/pkg/logx"
	"coedit/internal/pkg/resp"
)

const (
	// ConnectRate limits how often one IP may open new websocket connections.
	ConnectRate = 0.5

	// ConnectBurst is the burst allowance for websocket connections per IP.
	ConnectBurst = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes the per-IP rate limiter for the upgrade endpoint, configures
// CORS from the allowed-origins list, and wires the websocket and health routes.
func Router(hub *collab.Hub, cfg *configs.AppConfig) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range cfg.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if cfg.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(cfg.AllowedOrigins) > 0 {
		corsAllowedOrigins = cfg.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HandleHealth(hub))
	r.Get("/ws", HandleWebSocket(hub, wsUpgrader, connectLimiter))

	return r
}

// HandleHealth reports process liveness and the current live-room count.
func HandleHealth(hub *collab.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status": "ok",
			"rooms":  hub.RoomCount(),
		})
	}
}
