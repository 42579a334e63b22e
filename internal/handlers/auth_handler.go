package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tubecast/internal/auth"
	"tubecast/pkg/logger"
	"tubecast/pkg/utils"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	authService *auth.Service
	logger      *logger.Logger
}

func NewAuthHandler(authService *auth.Service, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, err.Error())
		return
	}

	user, err := h.authService.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			utils.ConflictResponse(c, "Username already taken")
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "User registered", gin.H{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, err.Error())
		return
	}

	token, user, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			utils.UnauthorizedResponse(c, "Invalid username or password")
			return
		}
		h.logger.Error("Login failed: %v", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Login failed", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Logged in", gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}
