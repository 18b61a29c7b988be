package handler

import (
	"context"
	"errors"
	"net/http"

	"prospecting_backend/internal/leads/domain"
	"prospecting_backend/internal/leads/transport"
	"prospecting_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Reader is the read side of the lead repository.
type Reader interface {
	GetByID(ctx context.Context, id, companyID uuid.UUID) (domain.Lead, error)
	ListStatuses(ctx context.Context, leadID, companyID uuid.UUID) ([]domain.LeadStatus, error)
}

type Handler struct {
	reader Reader
}

const msgInvalidRequest = "invalid request"

func New(reader Reader) *Handler {
	return &Handler{reader: reader}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.GetByID)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	tenantID := httpkit.GetIdentity(c).TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusForbidden, "tenant required", nil)
		return
	}

	lead, err := h.reader.GetByID(c.Request.Context(), id, *tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	history, err := h.reader.ListStatuses(c.Request.Context(), id, *tenantID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.LeadDetailResponse{
		Lead:     transport.FromLead(lead),
		Statuses: transport.FromStatuses(history),
	})
}
