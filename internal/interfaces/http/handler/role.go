package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/medbill/backend/internal/application/identity"
	"github.com/medbill/backend/internal/domain/identity"
	"github.com/medbill/backend/internal/interfaces/http/dto"
	"github.com/medbill/backend/internal/interfaces/http/middleware"
)

// CreateRoleRequest is the role creation request body
type CreateRoleRequest struct {
	Code            string   `json:"code" binding:"required"`
	Name            string   `json:"name" binding:"required"`
	Description     string   `json:"description"`
	PermissionCodes []string `json:"permission_codes"`
}

// UpdateRoleRequest is the role update request body
type UpdateRoleRequest struct {
	Name            *string   `json:"name"`
	Description     *string   `json:"description"`
	PermissionCodes *[]string `json:"permission_codes"`
}

// RoleResponse is the API view of a role
type RoleResponse struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionResponse is the API view of a grantable permission
type PermissionResponse struct {
	Code        string `json:"code"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// RoleHandler handles role management HTTP requests
type RoleHandler struct {
	BaseHandler
	roleService *identityapp.RoleService
}

// NewRoleHandler creates a new role handler
func NewRoleHandler(roleService *identityapp.RoleService) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
	}
}

// Create godoc
// @Summary      Create role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        request body CreateRoleRequest true "New role"
// @Success      201 {object} dto.Response{data=RoleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	actorID, actorName := actor(c)
	role, err := h.roleService.Create(c.Request.Context(), identityapp.CreateRoleInput{
		Code:            req.Code,
		Name:            req.Name,
		Description:     req.Description,
		PermissionCodes: req.PermissionCodes,
		ActorID:         actorID,
		ActorName:       actorName,
		IP:              c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, roleResponse(role))
}

// Get godoc
// @Summary      Get role
// @Tags         roles
// @Produce      json
// @Param        id path string true "Role ID"
// @Success      200 {object} dto.Response{data=RoleResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /roles/{id} [get]
func (h *RoleHandler) Get(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid role ID")
		return
	}

	role, err := h.roleService.Get(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, roleResponse(role))
}

// List godoc
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Success      200 {object} dto.Response{data=[]RoleResponse}
// @Router       /roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	page, err := h.roleService.List(c.Request.Context(), listFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	roles := make([]RoleResponse, len(page.Items))
	for i := range page.Items {
		roles[i] = roleResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, roles, page.Total, page.Page, page.PageSize)
}

// Update godoc
// @Summary      Update role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        id path string true "Role ID"
// @Param        request body UpdateRoleRequest true "Role fields"
// @Success      200 {object} dto.Response{data=RoleResponse}
// @Router       /roles/{id} [put]
func (h *RoleHandler) Update(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid role ID")
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	actorID, actorName := actor(c)
	role, err := h.roleService.Update(c.Request.Context(), identityapp.UpdateRoleInput{
		RoleID:          uuid.MustParse(uri.ID),
		Name:            req.Name,
		Description:     req.Description,
		PermissionCodes: req.PermissionCodes,
		ActorID:         actorID,
		ActorName:       actorName,
		IP:              c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, roleResponse(role))
}

// Delete godoc
// @Summary      Delete role
// @Tags         roles
// @Produce      json
// @Param        id path string true "Role ID"
// @Success      204
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /roles/{id} [delete]
func (h *RoleHandler) Delete(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid role ID")
		return
	}

	actorID, actorName := actor(c)
	if err := h.roleService.Delete(c.Request.Context(), uuid.MustParse(uri.ID), actorID, actorName, c.ClientIP()); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Permissions godoc
// @Summary      List grantable permissions
// @Tags         roles
// @Produce      json
// @Success      200 {object} dto.Response{data=[]PermissionResponse}
// @Router       /permissions [get]
func (h *RoleHandler) Permissions(c *gin.Context) {
	perms := h.roleService.Permissions()
	out := make([]PermissionResponse, len(perms))
	for i, p := range perms {
		out[i] = PermissionResponse{
			Code:        p.Code,
			Resource:    p.Resource,
			Action:      p.Action,
			Description: p.Description,
		}
	}
	h.Success(c, out)
}

// RegisterRoutes registers all role management routes
func (h *RoleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	roles := rg.Group("/roles", middleware.RequirePermission(identity.PermRoleManage.Code))
	{
		roles.GET("", h.List)
		roles.GET("/:id", h.Get)
		roles.POST("", h.Create)
		roles.PUT("/:id", h.Update)
		roles.DELETE("/:id", h.Delete)
	}

	rg.GET("/permissions", middleware.RequirePermission(identity.PermRoleManage.Code), h.Permissions)
}

// roleResponse maps a domain role to the API response
func roleResponse(role *identity.Role) RoleResponse {
	permissions := make([]string, len(role.Permissions))
	for i, p := range role.Permissions {
		permissions[i] = p.Code
	}
	return RoleResponse{
		ID:          role.ID,
		Code:        role.Code,
		Name:        role.Name,
		Description: role.Description,
		Permissions: permissions,
		IsSystem:    role.IsSystem,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}
