package handler

import (
	"classtix/internal/model"
	"classtix/internal/service"
	apperrors "classtix/pkg/app_errors"
	"classtix/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SessionHandler struct {
	service service.SessionService
}

func NewSessionHandler(service service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("sessions", h.List)
		router.GET("sessions/nearby", h.Nearby)
		router.GET("sessions/:uuid", h.GetBySessionID)
		router.POST("sessions", h.Create)
		router.PUT("sessions/:uuid", h.UpdateBySessionID)
		router.DELETE("sessions/:uuid", h.DeleteBySessionID)
		router.POST("sessions/:uuid/open", h.OpenForEnrollment)
	}
}

// NearbyRequest 附近課程查詢：缺少座標是輸入錯誤，不能默默當成 0
type NearbyRequest struct {
	Lat      *float64 `form:"lat" binding:"required"`
	Lon      *float64 `form:"lon" binding:"required"`
	RadiusKm *float64 `form:"radius_km" binding:"required"`
}

// UpdateSessionRequest 更新課程請求
type UpdateSessionRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *model.SessionStatus `json:"status"`
}

func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.service.List(c)
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *SessionHandler) Nearby(c *gin.Context) {
	var req NearbyRequest
	if err := BindQuery(c, &req); err != nil {
		return
	}

	results, err := h.service.Nearby(c, *req.Lat, *req.Lon, *req.RadiusKm)
	if err != nil {
		h.handleError(c, err, "Nearby")
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *SessionHandler) GetBySessionID(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session uuid"})
		return
	}
	session, err := h.service.GetBySessionID(c, sessionID)
	if err != nil {
		h.handleError(c, err, "GetBySessionID")
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	created, err := h.service.Create(c, &req)
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *SessionHandler) UpdateBySessionID(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session uuid"})
		return
	}
	var req UpdateSessionRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	if req.Title == nil && req.Description == nil && req.Status == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one field is required"})
		return
	}
	params := model.UpdateSessionParams{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	updated, err := h.service.UpdateBySessionID(c, sessionID, params)
	if err != nil {
		h.handleError(c, err, "UpdateBySessionID")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *SessionHandler) DeleteBySessionID(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session uuid"})
		return
	}
	if err := h.service.DeleteBySessionID(c, sessionID); err != nil {
		h.handleError(c, err, "DeleteBySessionID")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) OpenForEnrollment(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session uuid"})
		return
	}
	if err := h.service.OpenForEnrollment(c, sessionID); err != nil {
		h.handleError(c, err, "OpenForEnrollment")
		return
	}
	c.Status(http.StatusOK)
}

func (h *SessionHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		log.Warn("Session not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, apperrors.ErrSessionNotOpen):
		log.Warn("Session not open")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Session is not open for enrollment"})
	case errors.Is(err, apperrors.ErrInvalidCoordinates):
		log.Warn("Invalid coordinates")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
