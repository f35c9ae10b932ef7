package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/africtivistes/adisa/internal/api/middleware"
	"github.com/africtivistes/adisa/internal/core/ports"
)

// TwoFactorHandler serves TOTP enrollment and the second login step.
type TwoFactorHandler struct {
	service    ports.TwoFactorService
	enrollment ports.EnrollmentTokens
}

func NewTwoFactorHandler(service ports.TwoFactorService, enrollment ports.EnrollmentTokens) *TwoFactorHandler {
	return &TwoFactorHandler{service: service, enrollment: enrollment}
}

// Generate draws a new TOTP secret for an account that has not enabled 2FA yet.
//
// @Summary      Generate a 2FA secret
// @Tags         2fa
// @Accept       json
// @Produce      json
// @Param        body  body      twoFactorGenerateRequest  true  "Account id"
// @Success      200   {object}  twoFactorSetupResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/2fa/generate [post]
func (h *TwoFactorHandler) Generate(c echo.Context) error {
	var req twoFactorGenerateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := authorizeEnrollment(c, h.enrollment, req.UserID, req.EnrollmentToken); err != nil {
		return err
	}

	setup, err := h.service.Generate(c.Request().Context(), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, twoFactorSetupResponse{
		Secret:     setup.Secret,
		QRCode:     setup.QRCode,
		OTPAuthURL: setup.OTPAuthURL,
	})
}

// Verify checks a first code against the pending secret and enables 2FA.
//
// @Summary      Enable 2FA
// @Tags         2fa
// @Accept       json
// @Produce      json
// @Param        body  body      twoFactorVerifyRequest  true  "Account id and code"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/2fa/verify [post]
func (h *TwoFactorHandler) Verify(c echo.Context) error {
	var req twoFactorVerifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := authorizeEnrollment(c, h.enrollment, req.UserID, req.EnrollmentToken); err != nil {
		return err
	}

	if err := h.service.VerifyAndEnable(c.Request().Context(), req.UserID, req.Token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true, Message: "2FA enabled successfully"})
}

// Authenticate completes the second factor of a pending session.
//
// @Summary      Complete 2FA login
// @Tags         2fa
// @Accept       json
// @Produce      json
// @Param        body  body      twoFactorAuthenticateRequest  true  "TOTP code"
// @Success      200   {object}  twoFactorAuthenticateResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/2fa/authenticate [post]
func (h *TwoFactorHandler) Authenticate(c echo.Context) error {
	var req twoFactorAuthenticateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.service.Authenticate(c.Request().Context(), middleware.CurrentSession(c), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, twoFactorAuthenticateResponse{
		Authenticated: true,
		Message:       "2FA verification successful",
		User:          summarize(account.ID, account.Username, account.Email, account.Role),
	})
}
