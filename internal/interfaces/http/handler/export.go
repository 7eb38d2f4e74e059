package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/medbill/backend/internal/application/billing"
	"github.com/medbill/backend/internal/domain/identity"
	"github.com/medbill/backend/internal/interfaces/http/dto"
	"github.com/medbill/backend/internal/interfaces/http/middleware"
)

// EmailBillRequest sends one bill to its diagnostic center
type EmailBillRequest struct {
	Recipients []string `json:"recipients" binding:"required,min=1,dive,email"`
	Message    string   `json:"message"`
	AttachPDF  bool     `json:"attach_pdf"`
}

// ExportHandler handles bill export and delivery HTTP requests
type ExportHandler struct {
	BaseHandler
	exportService *billingapp.ExportService
	emailService  *billingapp.EmailService
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportService *billingapp.ExportService, emailService *billingapp.EmailService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		emailService:  emailService,
	}
}

// RegisterRoutes registers all export and delivery routes
func (h *ExportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bills := rg.Group("/bills")
	{
		bills.GET("/export/bundle", middleware.RequirePermission(identity.PermBillExport.Code), h.Bundle)
		bills.GET("/:id/export/excel", middleware.RequirePermission(identity.PermBillExport.Code), h.Excel)
		bills.GET("/:id/export/pdf", middleware.RequirePermission(identity.PermBillExport.Code), h.PDF)
		bills.POST("/:id/archive", middleware.RequirePermission(identity.PermBillExport.Code), h.Archive)
		bills.POST("/:id/email", middleware.RequirePermission(identity.PermBillEmail.Code), h.Email)
	}
}

// requestContext builds the audit context for an export request
func requestContext(c *gin.Context) billingapp.ExportRequestContext {
	userID, _ := getUserID(c)
	return billingapp.ExportRequestContext{
		RequestedBy: userID,
		Username:    middleware.GetJWTUsername(c),
		IP:          c.ClientIP(),
	}
}

// sendFile writes an export artifact as a download
func (h *ExportHandler) sendFile(c *gin.Context, file *billingapp.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Excel godoc
// @Summary      Export bill as Excel
// @Tags         exports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id path string true "Bill ID"
// @Success      200 {file} binary
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/{id}/export/excel [get]
func (h *ExportHandler) Excel(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	file, err := h.exportService.Excel(c.Request.Context(), uuid.MustParse(uri.ID), requestContext(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.sendFile(c, file)
}

// PDF godoc
// @Summary      Export bill as PDF
// @Tags         exports
// @Produce      application/pdf
// @Param        id path string true "Bill ID"
// @Success      200 {file} binary
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      501 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/{id}/export/pdf [get]
func (h *ExportHandler) PDF(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	file, err := h.exportService.PDF(c.Request.Context(), uuid.MustParse(uri.ID), requestContext(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.sendFile(c, file)
}

// Bundle godoc
// @Summary      Export bill bundle
// @Description  Zip the Excel exports of every bill matching the filter
// @Tags         exports
// @Produce      application/zip
// @Success      200 {file} binary
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/export/bundle [get]
func (h *ExportHandler) Bundle(c *gin.Context) {
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

	file, err := h.exportService.Bundle(c.Request.Context(), filter, requestContext(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.sendFile(c, file)
}

// Archive godoc
// @Summary      Archive bill to object storage
// @Description  Push the bill's Excel export to the archive bucket
// @Tags         exports
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} dto.Response{data=billingapp.ArchiveBillResult}
// @Failure      501 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/{id}/archive [post]
func (h *ExportHandler) Archive(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	result, err := h.exportService.Archive(c.Request.Context(), uuid.MustParse(uri.ID), requestContext(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Email godoc
// @Summary      Email bill
// @Description  Send the bill to the center's billing contacts with exports attached
// @Tags         exports
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID"
// @Param        request body EmailBillRequest true "Recipients and options"
// @Success      204
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      501 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/{id}/email [post]
func (h *ExportHandler) Email(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	var req EmailBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	userID, _ := getUserID(c)
	if err := h.emailService.SendBill(c.Request.Context(), billingapp.EmailBillInput{
		BillID:      uuid.MustParse(uri.ID),
		Recipients:  req.Recipients,
		Message:     req.Message,
		AttachPDF:   req.AttachPDF,
		RequestedBy: userID,
		Username:    middleware.GetJWTUsername(c),
		IP:          c.ClientIP(),
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
