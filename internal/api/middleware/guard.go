package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/africtivistes/adisa/internal/core/domain"
)

func guard(check func(*domain.Session) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := check(CurrentSession(c)); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequireAuthenticated admits any logged-in session, 2FA-pending included.
func RequireAuthenticated() echo.MiddlewareFunc {
	return guard(domain.RequireAuthenticated)
}

// RequireFullyVerified admits sessions that are logged in and, when the
// account has 2FA, have passed it.
func RequireFullyVerified() echo.MiddlewareFunc {
	return guard(domain.RequireFullyVerified)
}

// RequireAdmin admits fully verified admin sessions.
func RequireAdmin() echo.MiddlewareFunc {
	return guard(func(s *domain.Session) error {
		if err := domain.RequireFullyVerified(s); err != nil {
			return err
		}
		return domain.RequireAdmin(s)
	})
}
