package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	auditapp "github.com/medbill/backend/internal/application/audit"
	"github.com/medbill/backend/internal/domain/audit"
	"github.com/medbill/backend/internal/domain/identity"
	"github.com/medbill/backend/internal/interfaces/http/dto"
	"github.com/medbill/backend/internal/interfaces/http/middleware"
)

// ListAuditRequest is the audit trail query
type ListAuditRequest struct {
	dto.ListRequest
	UserID string `form:"user_id" binding:"omitempty,uuid"`
	BillID string `form:"bill_id" binding:"omitempty,uuid"`
	Action string `form:"action"`
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// AuditHandler handles audit trail HTTP requests
type AuditHandler struct {
	BaseHandler
	queryService *auditapp.QueryService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(queryService *auditapp.QueryService) *AuditHandler {
	return &AuditHandler{
		queryService: queryService,
	}
}

// RegisterRoutes registers all audit routes
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit", middleware.RequirePermission(identity.PermAuditView.Code), h.List)
}

// List godoc
// @Summary      List audit entries
// @Description  Query the audit trail newest first
// @Tags         audit
// @Produce      json
// @Success      200 {object} dto.Response{data=[]audit.Entry}
// @Router       /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var req ListAuditRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	filter := audit.Filter{Filter: listFilter(req.ListRequest)}
	if req.UserID != "" {
		userID := uuid.MustParse(req.UserID)
		filter.UserID = &userID
	}
	if req.BillID != "" {
		billID := uuid.MustParse(req.BillID)
		filter.BillID = &billID
	}
	if req.Action != "" {
		action := audit.Action(req.Action)
		filter.Action = &action
	}
	if req.From != "" {
		from, _ := time.Parse("2006-01-02", req.From)
		filter.FromDate = &from
	}
	if req.To != "" {
		to, _ := time.Parse("2006-01-02", req.To)
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.ToDate = &end
	}

	page, err := h.queryService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
