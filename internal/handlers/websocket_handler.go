package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"tubecast/internal/middleware"
	"tubecast/internal/websocket"
	"tubecast/pkg/logger"
	"tubecast/pkg/utils"
)

// WebSocketHandler upgrades authenticated clients onto the event hub.
type WebSocketHandler struct {
	hub      *websocket.Hub
	logger   *logger.Logger
	upgrader gorilla.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, logger *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := h.hub.NewClient(conn, userID)
	go client.WritePump()
	client.ReadPump()
}
