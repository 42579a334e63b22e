package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"tubecast/internal/middleware"
	"tubecast/internal/models"
	"tubecast/internal/store"
	"tubecast/pkg/logger"
	"tubecast/pkg/utils"
)

// ScheduleHandler manages a user's notification schedules.
type ScheduleHandler struct {
	store  *store.Store
	logger *logger.Logger
}

func NewScheduleHandler(st *store.Store, logger *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{store: st, logger: logger}
}

type scheduleRequest struct {
	Name     string   `json:"name" binding:"required"`
	Hour     int      `json:"hour"`
	Minute   int      `json:"minute"`
	Days     []int    `json:"days"`
	CronExpr string   `json:"cronExpr"`
	Groups   []string `json:"groups"`
	Active   *bool    `json:"active"`
}

func (r *scheduleRequest) validate() error {
	if len(r.Groups) == 0 {
		return errors.New("at least one group is required")
	}

	if r.CronExpr != "" {
		if _, err := cron.ParseStandard(r.CronExpr); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		return nil
	}

	if r.Hour < 0 || r.Hour > 23 {
		return errors.New("hour must be between 0 and 23")
	}
	if r.Minute < 0 || r.Minute > 59 {
		return errors.New("minute must be between 0 and 59")
	}
	if len(r.Days) == 0 {
		return errors.New("at least one day is required")
	}
	for _, day := range r.Days {
		if day < 0 || day > 6 {
			return fmt.Errorf("invalid day %d: must be between 0 (Sunday) and 6 (Saturday)", day)
		}
	}
	return nil
}

func (r *scheduleRequest) toSchedule() models.Schedule {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return models.Schedule{
		Name:     r.Name,
		Hour:     r.Hour,
		Minute:   r.Minute,
		Days:     r.Days,
		CronExpr: r.CronExpr,
		Groups:   r.Groups,
		Active:   active,
	}
}

func (h *ScheduleHandler) List(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	schedules, err := h.store.Schedules(userID)
	if err != nil {
		h.logger.Error("Failed to load schedules: %v", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load schedules", nil)
		return
	}
	if schedules == nil {
		schedules = []models.Schedule{}
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"schedules": schedules})
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		utils.ValidationErrorResponse(c, err.Error())
		return
	}

	schedule := req.toSchedule()
	schedule.ID = uuid.New().String()
	schedule.CreatedAt = time.Now()

	if err := h.store.CreateSchedule(userID, schedule); err != nil {
		h.logger.Error("Failed to create schedule: %v", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create schedule", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Schedule created", schedule)
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		utils.ValidationErrorResponse(c, err.Error())
		return
	}

	schedule := req.toSchedule()
	schedule.ID = c.Param("id")

	if err := h.store.UpdateSchedule(userID, schedule); err != nil {
		if errors.Is(err, store.ErrScheduleNotFound) {
			utils.NotFoundResponse(c, "Schedule not found")
			return
		}
		h.logger.Error("Failed to update schedule: %v", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update schedule", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Schedule updated", schedule)
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.UnauthorizedResponse(c, err.Error())
		return
	}

	if err := h.store.DeleteSchedule(userID, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrScheduleNotFound) {
			utils.NotFoundResponse(c, "Schedule not found")
			return
		}
		h.logger.Error("Failed to delete schedule: %v", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete schedule", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Schedule deleted", nil)
}
