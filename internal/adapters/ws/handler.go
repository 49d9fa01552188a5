package ws

import (
	"net/http"
	"slices"

	"mates/internal/config"
	"mates/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades /ws for the local UI. Requests without an Origin header
// (native shells, CLI tools) are accepted, so nothing broadcast on the hub
// may carry more than the UI itself displays: link outcomes go out redacted.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      logger.Logger
}

func NewHandler(hub *Hub, cfg *config.Config, log logger.Logger) *Handler {
	allowAll := slices.Contains(cfg.AllowedOrigins, "*")

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll {
				return true
			}

			if !slices.Contains(cfg.AllowedOrigins, origin) {
				log.Warn("ws: origin rejected", "origin", origin)
				return false
			}

			return true
		},
	}

	return &Handler{
		hub:      hub,
		upgrader: upgrader,
		log:      log,
	}
}

func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws: upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn, h.log, uuid.NewString())

	select {
	case h.hub.register <- client:
	case <-h.hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	h.log.Info("ws: client connected", "id", client.ID, "remote_addr", conn.RemoteAddr())
}
