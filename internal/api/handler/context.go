package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/africtivistes/adisa/internal/api/middleware"
	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
)

// authorizeEnrollment decides whether the request may set up 2FA for userID.
// A logged-in caller may only enroll itself unless it is an admin. Without a
// session the caller must present the enrollment grant that registration
// returned for userID.
func authorizeEnrollment(c echo.Context, tokens ports.EnrollmentTokens, userID, grant string) error {
	s := middleware.CurrentSession(c)
	if !s.IsAuthenticated() {
		return tokens.VerifyEnrollmentToken(grant, userID)
	}
	if s.AccountID != userID && s.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}

// requestOrigin is scheme://host of the current request.
func requestOrigin(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host
}

// bind decodes the body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.Invalid("invalid payload")
	}
	return c.Validate(req)
}
