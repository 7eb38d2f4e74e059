package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	billingapp "github.com/medbill/backend/internal/application/billing"
	"github.com/medbill/backend/internal/domain/identity"
	"github.com/medbill/backend/internal/interfaces/http/middleware"
)

// DashboardHandler handles dashboard HTTP requests
type DashboardHandler struct {
	BaseHandler
	dashboardService *billingapp.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *billingapp.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// RegisterRoutes registers all dashboard routes
func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	dashboard := rg.Group("/dashboard", middleware.RequirePermission(identity.PermBillView.Code))
	{
		dashboard.GET("/summary", h.Summary)
		dashboard.GET("/top-centers", h.TopCenters)
	}
}

// Summary godoc
// @Summary      Billing dashboard summary
// @Description  Headline counts, totals, top centers and monthly trend
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} dto.Response{data=billingapp.DashboardSummary}
// @Router       /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboardService.Summary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// TopCenters godoc
// @Summary      Top centers by billed amount
// @Tags         dashboard
// @Produce      json
// @Param        limit query int false "Number of centers" default(5)
// @Success      200 {object} dto.Response{data=[]billing.CenterTotal}
// @Router       /dashboard/top-centers [get]
func (h *DashboardHandler) TopCenters(c *gin.Context) {
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 50 {
			h.BadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	centers, err := h.dashboardService.TopCenters(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, centers)
}
