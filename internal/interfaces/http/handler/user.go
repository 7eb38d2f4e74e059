package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/medbill/backend/internal/application/identity"
	"github.com/medbill/backend/internal/domain/identity"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/interfaces/http/dto"
	"github.com/medbill/backend/internal/interfaces/http/middleware"
)

// CreateUserRequest is the user creation request body
type CreateUserRequest struct {
	Username       string      `json:"username" binding:"required"`
	Email          string      `json:"email" binding:"omitempty,email"`
	Password       string      `json:"password" binding:"required,min=8"`
	DisplayName    string      `json:"display_name"`
	RoleIDs        []uuid.UUID `json:"role_ids"`
	CanEditBills   bool        `json:"can_edit_bills"`
	CanDeleteBills bool        `json:"can_delete_bills"`
}

// UpdateUserRequest is the user profile update request body
type UpdateUserRequest struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	DisplayName *string `json:"display_name"`
}

// SetUserRolesRequest replaces a user's role assignments
type SetUserRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids" binding:"required"`
}

// SetBillPermissionsRequest sets the per-user bill overrides
type SetBillPermissionsRequest struct {
	CanEditBills   bool `json:"can_edit_bills"`
	CanDeleteBills bool `json:"can_delete_bills"`
}

// ResetPasswordRequest is the administrative password reset body
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ListUsersRequest is the user list query
type ListUsersRequest struct {
	dto.ListRequest
	Status string `form:"status" binding:"omitempty,oneof=active deactivated locked"`
	RoleID string `form:"role_id" binding:"omitempty,uuid"`
}

// UserResponse is the administrative view of an operator account
type UserResponse struct {
	ID             uuid.UUID   `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	DisplayName    string      `json:"display_name"`
	Status         string      `json:"status"`
	RoleIDs        []uuid.UUID `json:"role_ids"`
	CanEditBills   bool        `json:"can_edit_bills"`
	CanDeleteBills bool        `json:"can_delete_bills"`
	LastLoginAt    *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// UserHandler handles user management HTTP requests
type UserHandler struct {
	BaseHandler
	userService *identityapp.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *identityapp.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// actor extracts the acting user's identity for auditing
func actor(c *gin.Context) (uuid.UUID, string) {
	id, _ := getUserID(c)
	return id, middleware.GetJWTUsername(c)
}

// Create godoc
// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body CreateUserRequest true "New user"
// @Success      201 {object} dto.Response{data=UserResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	actorID, actorName := actor(c)
	user, err := h.userService.Create(c.Request.Context(), identityapp.CreateUserInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		DisplayName:    req.DisplayName,
		RoleIDs:        req.RoleIDs,
		CanEditBills:   req.CanEditBills,
		CanDeleteBills: req.CanDeleteBills,
		ActorID:        actorID,
		ActorName:      actorName,
		IP:             c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, userResponse(user))
}

// Get godoc
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} dto.Response{data=UserResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	user, err := h.userService.Get(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, userResponse(user))
}

// List godoc
// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200 {object} dto.Response{data=[]UserResponse}
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var req ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	filter := identity.UserFilter{Filter: listFilter(req.ListRequest)}
	if req.Status != "" {
		status := identity.UserStatus(req.Status)
		filter.Status = &status
	}
	if req.RoleID != "" {
		roleID := uuid.MustParse(req.RoleID)
		filter.RoleID = &roleID
	}

	page, err := h.userService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	users := make([]UserResponse, len(page.Items))
	for i := range page.Items {
		users[i] = userResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, users, page.Total, page.Page, page.PageSize)
}

// Update godoc
// @Summary      Update user profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        request body UpdateUserRequest true "Profile fields"
// @Success      200 {object} dto.Response{data=UserResponse}
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	actorID, actorName := actor(c)
	user, err := h.userService.Update(c.Request.Context(), identityapp.UpdateUserInput{
		UserID:      uuid.MustParse(uri.ID),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		ActorID:     actorID,
		ActorName:   actorName,
		IP:          c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, userResponse(user))
}

// SetRoles godoc
// @Summary      Replace user roles
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        request body SetUserRolesRequest true "Role IDs"
// @Success      200 {object} dto.Response{data=UserResponse}
// @Router       /users/{id}/roles [put]
func (h *UserHandler) SetRoles(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req SetUserRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	actorID, actorName := actor(c)
	user, err := h.userService.SetRoles(c.Request.Context(), identityapp.SetUserRolesInput{
		UserID:    uuid.MustParse(uri.ID),
		RoleIDs:   req.RoleIDs,
		ActorID:   actorID,
		ActorName: actorName,
		IP:        c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, userResponse(user))
}

// SetBillPermissions godoc
// @Summary      Set per-user bill permissions
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        request body SetBillPermissionsRequest true "Bill permission overrides"
// @Success      200 {object} dto.Response{data=UserResponse}
// @Router       /users/{id}/bill-permissions [put]
func (h *UserHandler) SetBillPermissions(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req SetBillPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	actorID, actorName := actor(c)
	user, err := h.userService.SetBillPermissions(c.Request.Context(), identityapp.SetBillPermissionsInput{
		UserID:         uuid.MustParse(uri.ID),
		CanEditBills:   req.CanEditBills,
		CanDeleteBills: req.CanDeleteBills,
		ActorID:        actorID,
		ActorName:      actorName,
		IP:             c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, userResponse(user))
}

// ResetPassword godoc
// @Summary      Reset user password
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        request body ResetPasswordRequest true "New password"
// @Success      204
// @Router       /users/{id}/password [put]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	actorID, actorName := actor(c)
	if err := h.userService.ResetPassword(c.Request.Context(), identityapp.ResetPasswordInput{
		UserID:      uuid.MustParse(uri.ID),
		NewPassword: req.NewPassword,
		ActorID:     actorID,
		ActorName:   actorName,
		IP:          c.ClientIP(),
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Activate godoc
// @Summary      Activate user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} dto.Response{data=UserResponse}
// @Router       /users/{id}/activate [post]
func (h *UserHandler) Activate(c *gin.Context) {
	h.lifecycle(c, h.userService.Activate)
}

// Deactivate godoc
// @Summary      Deactivate user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} dto.Response{data=UserResponse}
// @Router       /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.lifecycle(c, h.userService.Deactivate)
}

// Unlock godoc
// @Summary      Unlock user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} dto.Response{data=UserResponse}
// @Router       /users/{id}/unlock [post]
func (h *UserHandler) Unlock(c *gin.Context) {
	h.lifecycle(c, h.userService.Unlock)
}

// lifecycle runs one of the user state transitions
func (h *UserHandler) lifecycle(c *gin.Context, fn func(ctx context.Context, userID, actorID uuid.UUID, actorName, ip string) (*identity.User, error)) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	actorID, actorName := actor(c)
	user, err := fn(c.Request.Context(), uuid.MustParse(uri.ID), actorID, actorName, c.ClientIP())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, userResponse(user))
}

// Delete godoc
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      204
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	actorID, actorName := actor(c)
	if err := h.userService.Delete(c.Request.Context(), identityapp.DeleteUserInput{
		UserID:    uuid.MustParse(uri.ID),
		ActorID:   actorID,
		ActorName: actorName,
		IP:        c.ClientIP(),
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers all user management routes
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users", middleware.RequirePermission(identity.PermUserManage.Code))
	{
		users.GET("", h.List)
		users.GET("/:id", h.Get)
		users.POST("", h.Create)
		users.PUT("/:id", h.Update)
		users.PUT("/:id/roles", h.SetRoles)
		users.PUT("/:id/bill-permissions", h.SetBillPermissions)
		users.PUT("/:id/password", h.ResetPassword)
		users.POST("/:id/activate", h.Activate)
		users.POST("/:id/deactivate", h.Deactivate)
		users.POST("/:id/unlock", h.Unlock)
		users.DELETE("/:id", h.Delete)
	}
}

// userResponse maps a domain user to the API response
func userResponse(user *identity.User) UserResponse {
	return UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		DisplayName:    user.GetDisplayNameOrUsername(),
		Status:         string(user.Status),
		RoleIDs:        user.RoleIDs,
		CanEditBills:   user.CanEditBills,
		CanDeleteBills: user.CanDeleteBills,
		LastLoginAt:    user.LastLoginAt,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

// listFilter converts the standard list query into a shared filter
func listFilter(req dto.ListRequest) shared.Filter {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}
	filter.Search = req.Search
	return filter
}
