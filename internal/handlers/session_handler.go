package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tubecast/internal/middleware"
	"tubecast/internal/models"
	"tubecast/internal/whatsapp"
	"tubecast/pkg/logger"
	"tubecast/pkg/utils"
)

// SessionHandler exposes the per-user WhatsApp session lifecycle.
type SessionHandler struct {
	registry *whatsapp.Registry
	logger   *logger.Logger
}

func NewSessionHandler(registry *whatsapp.Registry, logger *logger.Logger) *SessionHandler {
	return &SessionHandler{registry: registry, logger: logger}
}

// Connect starts (or resumes) the user's session. Pairing progress arrives
// over the websocket, so this returns as soon as the attempt is underway.
func (h *SessionHandler) Connect(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	session, ok := h.registry.Get(userID)
	if !ok {
		session = h.registry.CreateOrReplace(userID)
	}

	if err := session.Connect(context.Background()); err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to start connection", gin.H{"error": err.Error()})
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Connection started", statusPayload(session.Status()))
}

// Disconnect logs the session out and removes its stored credentials, so
// the next connect starts a fresh pairing.
func (h *SessionHandler) Disconnect(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	session, ok := h.registry.Get(userID)
	if !ok {
		utils.SuccessResponse(c, http.StatusOK, "Not connected", nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	session.Disconnect(ctx)

	utils.SuccessResponse(c, http.StatusOK, "Disconnected", statusPayload(session.Status()))
}

// GetStatus reports the session's current state.
func (h *SessionHandler) GetStatus(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	session, ok := h.registry.Get(userID)
	if !ok {
		utils.SuccessResponse(c, http.StatusOK, "", gin.H{
			"state":     whatsapp.StateDisconnected.String(),
			"connected": false,
			"groups":    []models.Group{},
		})
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", statusPayload(session.Status()))
}

// GetGroups lists the groups discovered on the current connection.
func (h *SessionHandler) GetGroups(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	groups := []models.Group{}
	if session, ok := h.registry.Get(userID); ok {
		groups = session.Groups()
		if groups == nil {
			groups = []models.Group{}
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"groups": groups})
}

type testSendRequest struct {
	Groups []string `json:"groups"`
}

// TestSend runs one dispatch immediately, outside any schedule.
func (h *SessionHandler) TestSend(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	session, ok := h.registry.Get(userID)
	if !ok || !session.IsConnected() {
		utils.ErrorResponse(c, http.StatusConflict, "WhatsApp is not connected", nil)
		return
	}

	// An empty body means "send to everything".
	var req testSendRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ValidationErrorResponse(c, err.Error())
		return
	}

	groupIDs := req.Groups
	if len(groupIDs) == 0 {
		for _, g := range session.Groups() {
			groupIDs = append(groupIDs, g.ID)
		}
	}
	if len(groupIDs) == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "No groups to send to", nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if !session.Dispatch(ctx, groupIDs) {
		utils.ErrorResponse(c, http.StatusConflict, "Send did not run: no video found or a send is already in progress", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Test notification sent", gin.H{"groups": len(groupIDs)})
}

func statusPayload(status whatsapp.Status) gin.H {
	groups := status.Groups
	if groups == nil {
		groups = []models.Group{}
	}

	payload := gin.H{
		"state":     status.State.String(),
		"connected": status.Connected,
		"groups":    groups,
	}
	if status.State == whatsapp.StateReconnecting {
		payload["reconnectAttempt"] = status.Attempt
		payload["nextRetryAt"] = status.NextRetryAt
	}
	return payload
}
