package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/medbill/backend/internal/application/billing"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/identity"
	"github.com/medbill/backend/internal/interfaces/http/dto"
	"github.com/medbill/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// ListBillsRequest is the bill list query
type ListBillsRequest struct {
	dto.ListRequest
	CenterName string `form:"center_name"`
	CenterType string `form:"center_type" binding:"omitempty,oneof=B2B HLM"`
	Status     string `form:"status" binding:"omitempty,oneof=PENDING PARTIAL PAID CANCELLED"`
	Month      string `form:"month" binding:"omitempty,len=7"`
	UploadID   string `form:"upload_id" binding:"omitempty,uuid"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// ApplyPaymentRequest records one payment against a bill
type ApplyPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Mode      string          `json:"mode" binding:"required,oneof=CASH UPI BANK_TRANSFER CHEQUE"`
	Reference string          `json:"reference"`
	Remark    string          `json:"remark"`
}

// CancelBillRequest cancels an open bill
type CancelBillRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// BillHandler handles bill HTTP requests
type BillHandler struct {
	BaseHandler
	billService    *billingapp.BillService
	paymentService *billingapp.PaymentService
}

// NewBillHandler creates a new bill handler
func NewBillHandler(billService *billingapp.BillService, paymentService *billingapp.PaymentService) *BillHandler {
	return &BillHandler{
		billService:    billService,
		paymentService: paymentService,
	}
}

// RegisterRoutes registers all bill routes
func (h *BillHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bills := rg.Group("/bills")
	{
		bills.GET("", middleware.RequirePermission(identity.PermBillView.Code), h.List)
		bills.GET("/:id", middleware.RequirePermission(identity.PermBillView.Code), h.Get)
		bills.GET("/invoice/:number", middleware.RequirePermission(identity.PermBillView.Code), h.GetByInvoice)
		bills.POST("/:id/payments", middleware.RequirePermission(identity.PermBillEdit.Code), h.ApplyPayment)
		bills.POST("/:id/cancel", middleware.RequirePermission(identity.PermBillDelete.Code), h.Cancel)
	}
}

// List godoc
// @Summary      List bills
// @Tags         bills
// @Produce      json
// @Success      200 {object} dto.Response{data=[]billing.Bill}
// @Router       /bills [get]
func (h *BillHandler) List(c *gin.Context) {
	var req ListBillsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	filter, err := billFilter(req)
	if err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	page, err := h.billService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get godoc
// @Summary      Get bill
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} dto.Response{data=billing.Bill}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/{id} [get]
func (h *BillHandler) Get(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	bill, err := h.billService.Get(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// GetByInvoice godoc
// @Summary      Get bill by invoice number
// @Tags         bills
// @Produce      json
// @Param        number path string true "Invoice number"
// @Success      200 {object} dto.Response{data=billing.Bill}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/invoice/{number} [get]
func (h *BillHandler) GetByInvoice(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Invalid invoice number")
		return
	}

	bill, err := h.billService.GetByInvoiceNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// ApplyPayment godoc
// @Summary      Record payment
// @Description  Apply a payment to a bill's outstanding balance
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID"
// @Param        request body ApplyPaymentRequest true "Payment"
// @Success      200 {object} dto.Response{data=billing.Bill}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/{id}/payments [post]
func (h *BillHandler) ApplyPayment(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	userID, _ := getUserID(c)
	bill, err := h.paymentService.ApplyPayment(c.Request.Context(), billingapp.ApplyPaymentInput{
		BillID:     uuid.MustParse(uri.ID),
		Amount:     req.Amount,
		Mode:       billing.PaymentMode(req.Mode),
		Reference:  req.Reference,
		Remark:     req.Remark,
		RecordedBy: userID,
		Username:   middleware.GetJWTUsername(c),
		IP:         c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// Cancel godoc
// @Summary      Cancel bill
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID"
// @Param        request body CancelBillRequest true "Cancellation reason"
// @Success      200 {object} dto.Response{data=billing.Bill}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/{id}/cancel [post]
func (h *BillHandler) Cancel(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	var req CancelBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	userID, _ := getUserID(c)
	bill, err := h.paymentService.Cancel(c.Request.Context(), billingapp.CancelBillInput{
		BillID:      uuid.MustParse(uri.ID),
		Reason:      req.Reason,
		CancelledBy: userID,
		Username:    middleware.GetJWTUsername(c),
		IP:          c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// billFilter converts the list query into a domain filter
func billFilter(req ListBillsRequest) (billing.BillFilter, error) {
	filter := billing.BillFilter{Filter: listFilter(req.ListRequest)}

	if req.CenterName != "" {
		filter.CenterName = &req.CenterName
	}
	if req.CenterType != "" {
		centerType := billing.CenterType(req.CenterType)
		filter.CenterType = &centerType
	}
	if req.Status != "" {
		status := billing.BillStatus(req.Status)
		filter.Status = &status
	}
	if req.Month != "" {
		filter.MonthBucket = &req.Month
	}
	if req.UploadID != "" {
		uploadID, err := uuid.Parse(req.UploadID)
		if err != nil {
			return filter, err
		}
		filter.UploadID = &uploadID
	}
	if req.From != "" {
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return filter, err
		}
		filter.FromDate = &from
	}
	if req.To != "" {
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return filter, err
		}
		// Inclusive end of day
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.ToDate = &end
	}

	return filter, nil
}
