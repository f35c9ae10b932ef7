package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/africtivistes/adisa/internal/api/middleware"
	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
)

// InvitationHandler serves the invitation and registration endpoints.
type InvitationHandler struct {
	service    ports.InvitationService
	enrollment ports.EnrollmentTokens
}

func NewInvitationHandler(service ports.InvitationService, enrollment ports.EnrollmentTokens) *InvitationHandler {
	return &InvitationHandler{service: service, enrollment: enrollment}
}

// Invite issues an invitation and emails the registration link.
//
// @Summary      Invite a member
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      inviteRequest  true  "Invitee email"
// @Success      200   {object}  inviteResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/admin/invite [post]
func (h *InvitationHandler) Invite(c echo.Context) error {
	var req inviteRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	invitation, err := h.service.Issue(c.Request().Context(), ports.IssueInvitationInput{
		Email:    req.Email,
		IssuerID: middleware.CurrentSession(c).AccountID,
		BaseURL:  requestOrigin(c),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, inviteResponse{
		Success: true,
		Message: "Invitation sent",
		Email:   invitation.Email,
	})
}

// Validate tells the registration page whether a token can still be used.
//
// @Summary      Validate an invitation
// @Tags         invitations
// @Produce      json
// @Param        token  path      string  true  "Invitation token"
// @Success      200    {object}  validateInvitationResponse
// @Failure      404    {object}  errorResponse
// @Router       /api/invitation/validate/{token} [get]
func (h *InvitationHandler) Validate(c echo.Context) error {
	invitation, err := h.service.Validate(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, validateInvitationResponse{Valid: true, Email: invitation.Email})
}

// Register redeems an invitation and creates the account. A bad token is
// answered with 403 here, unlike on Validate.
//
// @Summary      Register with an invitation
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      200   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/register [post]
func (h *InvitationHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.service.Register(c.Request().Context(), ports.RegisterInput{
		Token:     req.Token,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredInvite) {
			return &echo.HTTPError{Code: http.StatusForbidden, Message: domain.MessageOf(err), Internal: err}
		}
		return err
	}

	grant, err := h.enrollment.IssueEnrollmentToken(account.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, registerResponse{
		Success:          true,
		Message:          "Account created, set up two-factor authentication to continue",
		UserID:           account.ID,
		Requires2FASetup: true,
		EnrollmentToken:  grant,
	})
}
