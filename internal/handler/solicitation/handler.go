package solicitation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agilpa/solicitation-api/internal/handler"
	"github.com/agilpa/solicitation-api/internal/middleware"
	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/internal/service/workflow"
)

type Handler struct {
	service *workflow.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *workflow.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	solicitations := r.Group("/solicitations")
	{
		solicitations.POST("", h.CreateSolicitation)
		solicitations.GET("", h.ListSolicitations)
		solicitations.GET("/:id", h.GetSolicitation)
		solicitations.GET("/:id/history", h.GetHistory)
		solicitations.GET("/:id/tasks", h.GetSigningTasks)
		solicitations.POST("/:id/transition", h.Transition)
		solicitations.POST("/:id/reject", h.Reject)
		solicitations.POST("/:id/archive", h.Archive)
	}
	// Individual signatures belong to SEFIN's ordenador.
	tasks := r.Group("/signing-tasks")
	tasks.Use(h.auth.RequireDepartment(model.DepartmentSEFIN))
	{
		tasks.POST("/:id/sign", h.SignTask)
		tasks.POST("/:id/reject", h.RejectTask)
	}
}

func (h *Handler) CreateSolicitation(c *gin.Context) {
	var req model.CreateSolicitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if req.RequesterID == uuid.Nil {
		if id, err := uuid.Parse(c.GetString(middleware.ContextUserID)); err == nil {
			req.RequesterID = id
		}
	}

	sol, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": sol})
}

func (h *Handler) GetSolicitation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid solicitation ID"})
		return
	}

	sol, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": sol})
}

func (h *Handler) ListSolicitations(c *gin.Context) {
	filters := &model.SolicitationFilters{
		Search: c.Query("search"),
	}

	if statuses := c.QueryArray("status"); len(statuses) > 0 {
		for _, s := range statuses {
			filters.Statuses = append(filters.Statuses, model.SolicitationStatus(s))
		}
	}
	if rt := c.Query("request_type"); rt != "" {
		filters.RequestType = model.RequestType(rt)
	}
	if id := c.Query("requester_id"); id != "" {
		requesterID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid requester ID"})
			return
		}
		filters.RequesterID = requesterID
	}
	if limit := c.Query("limit"); limit != "" {
		filters.Limit, _ = strconv.Atoi(limit)
	}
	if offset := c.Query("offset"); offset != "" {
		filters.Offset, _ = strconv.Atoi(offset)
	}

	sols, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": sols})
}

func (h *Handler) GetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid solicitation ID"})
		return
	}

	records, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": records})
}

func (h *Handler) GetSigningTasks(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid solicitation ID"})
		return
	}

	tasks, err := h.service.Tasks(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": tasks})
}

func (h *Handler) Transition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid solicitation ID"})
		return
	}

	var req model.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	sol, err := h.service.Transition(c.Request.Context(), id, req.Target, c.GetString(middleware.ContextUserName))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": sol})
}

func (h *Handler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid solicitation ID"})
		return
	}

	var req model.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	sol, err := h.service.Reject(c.Request.Context(), id, req.Reason, c.GetString(middleware.ContextUserName))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": sol})
}

func (h *Handler) Archive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid solicitation ID"})
		return
	}

	var req model.ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	sol, err := h.service.Archive(c.Request.Context(), id, req.NLSiafe, req.DataBaixa, c.GetString(middleware.ContextUserName))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": sol})
}

func (h *Handler) SignTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid task ID"})
		return
	}
	actor, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid user ID"})
		return
	}

	if err := h.service.SignTask(c.Request.Context(), taskID, actor, c.GetString(middleware.ContextUserName)); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"id": taskID, "result": "SIGNED"}})
}

func (h *Handler) RejectTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid task ID"})
		return
	}
	actor, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid user ID"})
		return
	}

	var req model.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := h.service.RejectTask(c.Request.Context(), taskID, actor, c.GetString(middleware.ContextUserName), req.Reason); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"id": taskID, "result": "REJECTED"}})
}
