package notification

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agilpa/solicitation-api/internal/handler"
	"github.com/agilpa/solicitation-api/internal/middleware"
	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/service/notification"
)

type Handler struct {
	service *notification.Service
}

func NewHandler(service *notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.GET("/stream", h.Stream)
		notifications.PATCH("/:id/read", h.MarkRead)
		notifications.POST("/read-all", h.MarkAllRead)
	}
}

func (h *Handler) userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid user ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	filters := &model.NotificationFilters{
		UnreadOnly: c.Query("unread") == "true",
	}
	if limit := c.Query("limit"); limit != "" {
		filters.Limit, _ = strconv.Atoi(limit)
	}
	if offset := c.Query("offset"); offset != "" {
		filters.Offset, _ = strconv.Atoi(offset)
	}

	notifications, err := h.service.List(c.Request.Context(), userID, filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": notifications})
}

func (h *Handler) GetUnreadCount(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	count, err := h.service.CountUnread(c.Request.Context(), userID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"unread": count}})
}

func (h *Handler) MarkRead(c *gin.Context) {
	if _, ok := h.userID(c); !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid notification ID"})
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"updated": updated}})
}

// Stream pushes the caller's live notifications as server-sent events
// until the client disconnects.
func (h *Handler) Stream(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	ch, err := h.service.Subscribe(c.Request.Context(), userID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case n, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
