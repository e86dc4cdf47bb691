package handler

import (
	"classtix/internal/model"
	"classtix/internal/service"
	apperrors "classtix/pkg/app_errors"
	"classtix/pkg/logger"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EnrollmentHandler struct {
	service service.EnrollmentService
}

func NewEnrollmentHandler(service service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

func (h *EnrollmentHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("sessions/:uuid/enroll", h.Enroll)
		router.POST("sessions/:uuid/cancel", h.Cancel)
		router.GET("users/:id/enrollments", h.ListByUser)
	}
}

func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session uuid"})
		return
	}

	var req model.EnrollRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	response, err := h.service.Enroll(c, sessionID, req.UserID)
	if err != nil {
		h.handleError(c, err, "Enroll")
		return
	}

	c.JSON(http.StatusCreated, response)
}

func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session uuid"})
		return
	}

	var req model.EnrollRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	if err := h.service.Cancel(c, sessionID, req.UserID); err != nil {
		h.handleError(c, err, "Cancel")
		return
	}

	c.Status(http.StatusOK)
}

func (h *EnrollmentHandler) ListByUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	enrollments, err := h.service.ListByUserID(c, userID)
	if err != nil {
		h.handleError(c, err, "ListByUser")
		return
	}

	c.JSON(http.StatusOK, enrollments)
}

// handleError 滿班和重複報名要回不同訊息，前端提示不一樣
func (h *EnrollmentHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		log.Warn("Session not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, apperrors.ErrEnrollmentNotFound):
		log.Warn("Enrollment not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Enrollment not found"})
	case errors.Is(err, apperrors.ErrSessionNotOpen):
		log.Warn("Session not open")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Session is not open for enrollment"})
	case errors.Is(err, apperrors.ErrAlreadyEnrolled):
		log.Warn("Already enrolled")
		c.JSON(http.StatusConflict, gin.H{"error": "Already enrolled in this session"})
	case errors.Is(err, apperrors.ErrSessionFull):
		log.Warn("Session full")
		c.JSON(http.StatusConflict, gin.H{"error": "Session is full"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
