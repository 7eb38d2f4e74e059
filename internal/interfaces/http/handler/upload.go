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
)

// GenerateBillsRequest triggers bill generation for one upload
type GenerateBillsRequest struct {
	// BillDate defaults to now when omitted
	BillDate *time.Time `json:"bill_date"`
	// CenterType limits the run to B2B or HLM rows
	CenterType string `json:"center_type" binding:"omitempty,oneof=B2B HLM"`
	// Centers limits the run to the named centers
	Centers []string `json:"centers"`
	// SharingOverrides replaces the configured sharing percentage per
	// test type for this run only
	SharingOverrides map[string]float64 `json:"sharing_overrides"`
}

// UploadCentersQuery filters the center preview by center type
type UploadCentersQuery struct {
	Type string `form:"type" binding:"omitempty,oneof=B2B HLM"`
}

// UploadTestTypesQuery names the center whose test types to preview
type UploadTestTypesQuery struct {
	Center string `form:"center" binding:"required"`
}

// UploadHandler handles spreadsheet upload HTTP requests
type UploadHandler struct {
	BaseHandler
	uploadService     *billingapp.UploadService
	generationService *billingapp.GenerationService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService *billingapp.UploadService, generationService *billingapp.GenerationService) *UploadHandler {
	return &UploadHandler{
		uploadService:     uploadService,
		generationService: generationService,
	}
}

// RegisterRoutes registers all upload routes
func (h *UploadHandler) RegisterRoutes(rg *gin.RouterGroup) {
	uploads := rg.Group("/uploads")
	{
		uploads.GET("", middleware.RequirePermission(identity.PermBillView.Code), h.List)
		uploads.GET("/:id", middleware.RequirePermission(identity.PermBillView.Code), h.Get)
		uploads.GET("/:id/centers", middleware.RequirePermission(identity.PermBillView.Code), h.Centers)
		uploads.GET("/:id/test-types", middleware.RequirePermission(identity.PermBillView.Code), h.TestTypes)
		uploads.POST("", middleware.RequirePermission(identity.PermUploadData.Code), h.Create)
		uploads.POST("/:id/generate", middleware.RequirePermission(identity.PermUploadData.Code), h.Generate)
		uploads.DELETE("/:id", middleware.RequirePermission(identity.PermBillDelete.Code), h.Delete)
	}
}

// Create godoc
// @Summary      Upload test report spreadsheet
// @Description  Receive and validate an xlsx workbook of test rows
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Workbook file"
// @Success      201 {object} dto.Response{data=billingapp.UploadSpreadsheetResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /uploads [post]
func (h *UploadHandler) Create(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Missing file field")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Cannot read uploaded file")
		return
	}
	defer file.Close()

	userID, _ := getUserID(c)
	result, err := h.uploadService.Receive(c.Request.Context(), billingapp.UploadSpreadsheetInput{
		FileName:   fileHeader.Filename,
		Size:       fileHeader.Size,
		Content:    file,
		UploadedBy: userID,
		Username:   middleware.GetJWTUsername(c),
		IP:         c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Get godoc
// @Summary      Get upload
// @Tags         uploads
// @Produce      json
// @Param        id path string true "Upload ID"
// @Success      200 {object} dto.Response{data=billing.Upload}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /uploads/{id} [get]
func (h *UploadHandler) Get(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid upload ID")
		return
	}

	upload, err := h.uploadService.Get(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, upload)
}

// List godoc
// @Summary      List uploads
// @Tags         uploads
// @Produce      json
// @Success      200 {object} dto.Response{data=[]billing.Upload}
// @Router       /uploads [get]
func (h *UploadHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	page, err := h.uploadService.List(c.Request.Context(), listFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Delete godoc
// @Summary      Delete upload
// @Description  Remove an upload record and its stored workbook
// @Tags         uploads
// @Produce      json
// @Param        id path string true "Upload ID"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /uploads/{id} [delete]
func (h *UploadHandler) Delete(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid upload ID")
		return
	}

	if err := h.uploadService.Delete(c.Request.Context(), uuid.MustParse(uri.ID)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Centers godoc
// @Summary      Preview billable centers in an upload
// @Description  List distinct centers, optionally for one center type
// @Tags         uploads
// @Produce      json
// @Param        id path string true "Upload ID"
// @Param        type query string false "Center type (B2B or HLM)"
// @Success      200 {object} dto.Response{data=billingapp.UploadCentersResult}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /uploads/{id}/centers [get]
func (h *UploadHandler) Centers(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid upload ID")
		return
	}
	var query UploadCentersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	var centerType *billing.CenterType
	if query.Type != "" {
		t := billing.CenterType(query.Type)
		centerType = &t
	}

	result, err := h.uploadService.Centers(c.Request.Context(), uuid.MustParse(uri.ID), centerType)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// TestTypes godoc
// @Summary      Preview test types for one center
// @Description  List the distinct test types in the center's rows
// @Tags         uploads
// @Produce      json
// @Param        id path string true "Upload ID"
// @Param        center query string true "Center name"
// @Success      200 {object} dto.Response{data=billingapp.UploadTestTypesResult}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /uploads/{id}/test-types [get]
func (h *UploadHandler) TestTypes(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid upload ID")
		return
	}
	var query UploadTestTypesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.uploadService.TestTypes(c.Request.Context(), uuid.MustParse(uri.ID), query.Center)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Generate godoc
// @Summary      Generate bills from upload
// @Description  Aggregate the upload's rows into per-center invoices
// @Tags         uploads
// @Accept       json
// @Produce      json
// @Param        id path string true "Upload ID"
// @Param        request body GenerateBillsRequest false "Generation options"
// @Success      200 {object} dto.Response{data=billingapp.GenerateBillsResult}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /uploads/{id}/generate [post]
func (h *UploadHandler) Generate(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid upload ID")
		return
	}

	var req GenerateBillsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	input := billingapp.GenerateBillsInput{
		UploadID:         uuid.MustParse(uri.ID),
		Centers:          req.Centers,
		SharingOverrides: req.SharingOverrides,
		Username:         middleware.GetJWTUsername(c),
		IP:               c.ClientIP(),
	}
	input.RequestedBy, _ = getUserID(c)
	if req.BillDate != nil {
		input.BillDate = *req.BillDate
	}
	if req.CenterType != "" {
		t := billing.CenterType(req.CenterType)
		input.CenterType = &t
	}

	result, err := h.generationService.Generate(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
