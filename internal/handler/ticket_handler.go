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
	"go.uber.org/zap"
)

type TicketHandler struct {
	service service.TicketService
}

func NewTicketHandler(service service.TicketService) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("tickets/:number", h.GetByTicketNumber)
		router.POST("tickets/verify", h.Verify)
		router.POST("tickets/:number/redeem", h.Redeem)
		router.GET("users/:id/tickets", h.ListByUser)
	}
}

func (h *TicketHandler) GetByTicketNumber(c *gin.Context) {
	ticket, err := h.service.GetByTicketNumber(c, c.Param("number"))
	if err != nil {
		h.handleError(c, err, "GetByTicketNumber")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Verify(c *gin.Context) {
	var req model.VerifyTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	// 驗章失敗不是 server error，一律 200 + valid=false
	c.JSON(http.StatusOK, h.service.Verify(c, req.QRCode))
}

func (h *TicketHandler) Redeem(c *gin.Context) {
	var req model.VerifyTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	ticket, err := h.service.Redeem(c, c.Param("number"), req.QRCode)
	if err != nil {
		h.handleError(c, err, "Redeem")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) ListByUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	tickets, err := h.service.ListByUserID(c, userID)
	if err != nil {
		h.handleError(c, err, "ListByUser")
		return
	}

	c.JSON(http.StatusOK, tickets)
}

func (h *TicketHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrTicketNotFound):
		log.Warn("Ticket not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
	case errors.Is(err, apperrors.ErrInvalidTicket):
		log.Warn("Invalid ticket payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket payload"})
	case errors.Is(err, apperrors.ErrTicketExpired):
		log.Warn("Ticket expired")
		c.JSON(http.StatusGone, gin.H{"error": "Ticket has expired"})
	case errors.Is(err, apperrors.ErrTicketNotActive):
		log.Warn("Ticket not active")
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket is not active"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
