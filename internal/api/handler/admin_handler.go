package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/africtivistes/adisa/internal/api/middleware"
	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
)

// AdminHandler serves account administration.
type AdminHandler struct {
	service ports.AccountService
}

func NewAdminHandler(service ports.AccountService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListUsers returns every account, newest first.
//
// @Summary      List accounts
// @Tags         admin
// @Produce      json
// @Success      200  {object}  listUsersResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	accounts, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listUsersResponse{Users: accounts})
}

// UpdateUser changes the role or the active flag of an account. Admins cannot
// demote or deactivate themselves.
//
// @Summary      Update an account
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Account id"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  updateUserResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/admin/users/{id} [patch]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req updateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	id := c.Param("id")
	var update domain.AccountUpdate
	if req.Role != nil {
		role := domain.Role(*req.Role)
		update.Role = &role
	}
	update.IsActive = req.IsActive

	if id == middleware.CurrentSession(c).AccountID && losesAdmin(update) {
		return domain.Invalid("you cannot remove your own admin access")
	}

	account, err := h.service.Update(c.Request().Context(), id, update)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updateUserResponse{User: account})
}

func losesAdmin(u domain.AccountUpdate) bool {
	return (u.Role != nil && *u.Role != domain.RoleAdmin) || (u.IsActive != nil && !*u.IsActive)
}
