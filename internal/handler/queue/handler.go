package queue

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agilpa/solicitation-api/internal/handler"
	"github.com/agilpa/solicitation-api/internal/middleware"
	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/service/queue"
	"github.com/agilpa/solicitation-api/internal/service/watermark"
)

type Handler struct {
	service    *queue.Service
	watermarks *watermark.Tracker
}

func NewHandler(service *queue.Service, watermarks *watermark.Tracker) *Handler {
	return &Handler{service: service, watermarks: watermarks}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	queues := r.Group("/queues/:department")
	{
		queues.GET("", h.GetQueue)
		queues.GET("/urgent", h.GetUrgentCount)
		queues.GET("/badge", h.GetBadge)
		queues.POST("/acknowledge", h.Acknowledge)
	}
}

func (h *Handler) department(c *gin.Context) (model.Department, bool) {
	dept := model.Department(c.Param("department"))
	if !dept.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "unknown department"})
		return "", false
	}
	return dept, true
}

func (h *Handler) GetQueue(c *gin.Context) {
	dept, ok := h.department(c)
	if !ok {
		return
	}

	snapshot, err := h.service.PendingFor(c.Request.Context(), dept)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": snapshot})
}

func (h *Handler) GetUrgentCount(c *gin.Context) {
	dept, ok := h.department(c)
	if !ok {
		return
	}

	count, err := h.service.UrgentCount(c.Request.Context(), dept)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"department": dept, "urgent_count": count}})
}

// GetBadge returns how many queue items arrived since the caller last
// acknowledged this department's queue.
func (h *Handler) GetBadge(c *gin.Context) {
	dept, ok := h.department(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid user ID"})
		return
	}

	snapshot, err := h.service.PendingFor(c.Request.Context(), dept)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"department": dept,
		"pending":    snapshot.Count,
		"new":        h.watermarks.NewSince(userID, dept, snapshot.Count),
	}})
}

// Acknowledge records the caller's current pending count as seen, so
// the badge drops to zero until new items arrive. An explicit
// ?pending=N skips the queue read; useful when the client already holds
// a fresh snapshot.
func (h *Handler) Acknowledge(c *gin.Context) {
	dept, ok := h.department(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid user ID"})
		return
	}

	pending := -1
	if p := c.Query("pending"); p != "" {
		if pending, err = strconv.Atoi(p); err != nil || pending < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid pending count"})
			return
		}
	}
	if pending < 0 {
		snapshot, err := h.service.PendingFor(c.Request.Context(), dept)
		if err != nil {
			handler.Error(c, err)
			return
		}
		pending = snapshot.Count
	}

	if err := h.watermarks.Acknowledge(userID, dept, pending); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"department": dept, "acknowledged": pending}})
}
