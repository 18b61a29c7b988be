package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"prospecting_backend/internal/workflows/domain"
	"prospecting_backend/internal/workflows/service"
	"prospecting_backend/internal/workflows/transport"
	"prospecting_backend/platform/httpkit"
	"prospecting_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Runner is the part of the run service the handler drives.
type Runner interface {
	Get(ctx context.Context, companyID, id uuid.UUID) (domain.Workflow, error)
	History(ctx context.Context, companyID, id uuid.UUID, limit int) ([]domain.HistoryEntry, error)
	Run(ctx context.Context, companyID, id uuid.UUID, opts service.RunOptions) (service.RunResult, error)
	Enqueue(ctx context.Context, companyID, id uuid.UUID, opts service.RunOptions) (domain.Workflow, error)
}

type Handler struct {
	runner Runner
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgTenantRequired   = "tenant required"
)

func New(runner Runner, val *validator.Validator) *Handler {
	return &Handler{runner: runner, val: val}
}

// RegisterRoutes mounts the workflow routes. Run triggers pass through
// runLimit when it is given.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, runLimit gin.HandlerFunc) {
	rg.GET("/:id", h.Get)
	rg.GET("/:id/history", h.History)
	if runLimit != nil {
		rg.POST("/:id/run", runLimit, h.Run)
	} else {
		rg.POST("/:id/run", h.Run)
	}
}

func (h *Handler) Get(c *gin.Context) {
	id, tenantID, ok := h.scope(c)
	if !ok {
		return
	}

	wf, err := h.runner.Get(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromWorkflow(wf))
}

func (h *Handler) History(c *gin.Context) {
	id, tenantID, ok := h.scope(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.runner.History(c.Request.Context(), tenantID, id, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromHistory(entries))
}

func (h *Handler) Run(c *gin.Context) {
	id, tenantID, ok := h.scope(c)
	if !ok {
		return
	}

	var req transport.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	opts := service.RunOptions{Identifiers: req.Identifiers}
	if req.Async {
		wf, err := h.runner.Enqueue(c.Request.Context(), tenantID, id, opts)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.Accepted(c, transport.QueuedRunResponse{Workflow: transport.FromWorkflow(wf), Queued: true})
		return
	}

	result, err := h.runner.Run(c.Request.Context(), tenantID, id, opts)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromRunResult(result))
}

func (h *Handler) scope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, uuid.Nil, false
	}
	tenantID := httpkit.GetIdentity(c).TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusForbidden, msgTenantRequired, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return id, *tenantID, true
}
