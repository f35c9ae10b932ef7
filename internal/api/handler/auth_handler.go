package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/africtivistes/adisa/internal/api/middleware"
	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
)

// AuthHandler serves login, logout and the current-user endpoints.
type AuthHandler struct {
	authService ports.AuthService
	cookies     middleware.Cookies
}

func NewAuthHandler(authService ports.AuthService, cookies middleware.Cookies) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

// Login checks the credentials and opens a session. When the account has 2FA
// enabled the session stays pending until /2fa/authenticate succeeds.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /api/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	h.cookies.Set(c, result.Token)

	s := result.Session
	if result.Requires2FA() {
		return c.JSON(http.StatusOK, loginResponse{Success: true, Requires2FA: true, UserID: s.AccountID})
	}
	return c.JSON(http.StatusOK, loginResponse{
		Success: true,
		User:    summarize(s.AccountID, s.Username, s.Email, s.Role),
	})
}

// Logout destroys the session and clears the cookie. The GET form is used by
// plain links and redirects to the login page.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  successResponse
// @Success      302
// @Router       /api/logout [post]
// @Router       /api/logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), middleware.CurrentSession(c)); err != nil {
		return err
	}
	h.cookies.Clear(c)

	if c.Request().Method == http.MethodGet {
		return c.Redirect(http.StatusFound, "/login")
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// Check reports whether the request carries a fully verified session. A
// session still waiting on its 2FA code gets 401.
//
// @Summary      Check authentication
// @Tags         auth
// @Produce      json
// @Success      200  {object}  checkResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/check [get]
func (h *AuthHandler) Check(c echo.Context) error {
	if err := domain.RequireFullyVerified(middleware.CurrentSession(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, checkResponse{Authenticated: true})
}

// CurrentUser returns the profile of the logged-in account.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  currentUserResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/auth/user [get]
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	account, err := h.authService.CurrentUser(c.Request().Context(), middleware.CurrentSession(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCurrentUser(account))
}
