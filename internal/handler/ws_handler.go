/*
Package handler provides the HTTP handler function for websocket connection upgrading.

This file contains the HandleWebSocket function, which is responsible for rate
limiting, upgrading the HTTP connection to a websocket, and starting the
client's read and write loops. Rooms are created and joined over the socket
itself, so the connection arrives unbound to any room.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"coedit/internal/app/collab"
	"coedit/internal/pkg/errs"
	"coedit/internal/pkg/limiter"
	"coedit/internal/pkg/logx"
	"coedit/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process websocket connection requests.
func HandleWebSocket(hub *collab.Hub, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := collab.NewClient(hub, conn)

		go client.WritePump()

		logx.Info("WebSocket connection established", "remote_addr", conn.RemoteAddr().String())

		client.ReadPump()
	}
}
