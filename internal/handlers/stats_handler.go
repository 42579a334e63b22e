package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tubecast/internal/middleware"
	"tubecast/internal/store"
	"tubecast/internal/websocket"
	"tubecast/internal/whatsapp"
	"tubecast/pkg/logger"
	"tubecast/pkg/utils"
)

// StatsHandler reports per-user and system-wide delivery counters.
type StatsHandler struct {
	store    *store.Store
	registry *whatsapp.Registry
	hub      *websocket.Hub
	logger   *logger.Logger
}

func NewStatsHandler(st *store.Store, registry *whatsapp.Registry, hub *websocket.Hub, logger *logger.Logger) *StatsHandler {
	return &StatsHandler{store: st, registry: registry, hub: hub, logger: logger}
}

// GetStats returns the calling user's counters.
func (h *StatsHandler) GetStats(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	data, err := h.store.UserData(userID)
	if err != nil {
		h.logger.Error("Failed to load user data: %v", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load stats", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"messagesSent": data.Stats.MessagesSent,
		"videosShared": data.Stats.VideosShared,
		"groups":       len(data.Groups),
		"schedules":    len(data.Schedules),
		"lastUpdate":   data.LastUpdate,
	})
}

// GetSystemStats returns aggregate counters across all users plus live
// connection counts.
func (h *StatsHandler) GetSystemStats(c *gin.Context) {
	stats, err := h.store.SystemStats()
	if err != nil {
		h.logger.Error("Failed to aggregate system stats: %v", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load system stats", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"totalUsers":        stats.TotalUsers,
		"totalMessages":     stats.TotalMessages,
		"totalVideos":       stats.TotalVideos,
		"totalSchedules":    stats.TotalSchedules,
		"totalGroups":       stats.TotalGroups,
		"connectedSessions": len(h.registry.ConnectedSessions()),
		"websocketClients":  h.hub.ClientCount(),
	})
}
