package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/africtivistes/adisa/internal/core/domain"
)

const sessionKey = "adisa.session"

// SessionResolver turns the signed cookie value into a live session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Session, error)
}

// Cookies describes the session cookie. It is HTTP-only, SameSite=Lax and
// lives exactly as long as the server-side session.
type Cookies struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Set writes token as the session cookie.
func (k Cookies) Set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     k.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(k.TTL.Seconds()),
		Expires:  time.Now().Add(k.TTL),
	})
}

// Clear expires the session cookie on the client.
func (k Cookies) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     k.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// Session loads the session referenced by the cookie, if any, and stores it
// on the context. Requests without a valid cookie continue anonymously; the
// guards decide what they may reach.
func Session(resolver SessionResolver, cookies Cookies) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookies.Name)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			session, err := resolver.Resolve(c.Request().Context(), cookie.Value)
			switch {
			case err == nil:
				SetSession(c, session)
			case errors.Is(err, domain.ErrUnauthorized):
				cookies.Clear(c)
			default:
				return err
			}
			return next(c)
		}
	}
}

// CurrentSession returns the session loaded for this request, or nil.
func CurrentSession(c echo.Context) *domain.Session {
	s, _ := c.Get(sessionKey).(*domain.Session)
	return s
}

// SetSession attaches s to the request.
func SetSession(c echo.Context, s *domain.Session) {
	c.Set(sessionKey, s)
}
