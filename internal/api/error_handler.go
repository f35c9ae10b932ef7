package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/africtivistes/adisa/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string      `json:"error"`
	Code  domain.Kind `json:"code,omitempty"`
}

// statusByKind is the default HTTP status of each error kind. Handlers can
// override it by returning an *echo.HTTPError wrapping the domain error.
var statusByKind = map[domain.Kind]int{
	domain.KindInvalidCredentials: http.StatusUnauthorized,
	domain.KindAccountInactive:    http.StatusUnauthorized,
	domain.KindUnauthorized:       http.StatusUnauthorized,
	domain.KindTwoFactorRequired:  http.StatusUnauthorized,
	domain.KindInvalidCode:        http.StatusUnauthorized,
	domain.KindForbidden:          http.StatusForbidden,
	domain.KindInvalidInvitation:  http.StatusNotFound,
	domain.KindNotFound:           http.StatusNotFound,
	domain.KindUserAlreadyExists:  http.StatusConflict,
	domain.KindUsernameTaken:      http.StatusConflict,
	domain.KindAlreadyEnabled:     http.StatusBadRequest,
	domain.KindNotInitialized:     http.StatusBadRequest,
	domain.KindNotEnabled:         http.StatusBadRequest,
	domain.KindValidation:         http.StatusBadRequest,
	domain.KindStorage:            http.StatusInternalServerError,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status through their Kind.
//   - Logs storage and unexpected errors without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<kind>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// A handler-chosen status, possibly around a domain error.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		kind := domain.KindOf(he.Internal)
		if kind == domain.KindStorage {
			logFailure(log, c, he.Internal, "storage failure")
			return he.Code, errorResponse{Error: "internal server error", Code: kind}
		}
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: kind}
	}

	kind := domain.KindOf(err)
	switch kind {
	case "":
		logFailure(log, c, err, "unhandled error")
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	case domain.KindStorage:
		logFailure(log, c, err, "storage failure")
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: kind}
	case domain.KindValidation:
		return http.StatusBadRequest, errorResponse{Error: validationMessage(err), Code: kind}
	}
	return statusByKind[kind], errorResponse{Error: domain.MessageOf(err), Code: kind}
}

func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
}

func logFailure(log zerolog.Logger, c echo.Context, err error, msg string) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg(msg)
}
