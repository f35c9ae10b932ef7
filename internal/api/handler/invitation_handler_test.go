package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
)

func TestInvitationHandler_Invite(t *testing.T) {
	var got ports.IssueInvitationInput
	stub := &stubInvitationService{
		issueFn: func(ctx context.Context, in ports.IssueInvitationInput) (*domain.Invitation, error) {
			got = in
			return &domain.Invitation{Email: "awa@example.org"}, nil
		},
	}
	h := NewInvitationHandler(stub, stubEnrollment{})

	c, rec := newContext(t, http.MethodPost, "http://adisa.test/api/admin/invite", `{"email":"Awa@Example.org"}`, adminSession())
	if err := h.Invite(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if got.IssuerID != "admin-1" || got.BaseURL != "http://adisa.test" {
		t.Fatalf("unexpected service input: %+v", got)
	}
	resp := decode(t, rec)
	if resp["success"] != true || resp["email"] != "awa@example.org" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestInvitationHandler_Invite_Errors(t *testing.T) {
	t.Run("malformed email", func(t *testing.T) {
		stub := &stubInvitationService{
			issueFn: func(ctx context.Context, in ports.IssueInvitationInput) (*domain.Invitation, error) {
				t.Fatal("service should not be called")
				return nil, nil
			},
		}
		c, _ := newContext(t, http.MethodPost, "/api/admin/invite", `{"email":"not-an-email"}`, adminSession())
		if err := NewInvitationHandler(stub, stubEnrollment{}).Invite(c); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("existing user", func(t *testing.T) {
		stub := &stubInvitationService{
			issueFn: func(ctx context.Context, in ports.IssueInvitationInput) (*domain.Invitation, error) {
				return nil, domain.ErrUserAlreadyExists
			},
		}
		c, _ := newContext(t, http.MethodPost, "/api/admin/invite", `{"email":"awa@example.org"}`, adminSession())
		if err := NewInvitationHandler(stub, stubEnrollment{}).Invite(c); !errors.Is(err, domain.ErrUserAlreadyExists) {
			t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
		}
	})
}

func TestInvitationHandler_Validate(t *testing.T) {
	stub := &stubInvitationService{
		validateFn: func(ctx context.Context, token string) (*domain.Invitation, error) {
			if token != "good" {
				return nil, domain.ErrInvitationExpired
			}
			return &domain.Invitation{Email: "awa@example.org"}, nil
		},
	}
	h := NewInvitationHandler(stub, stubEnrollment{})

	c, rec := newContext(t, http.MethodGet, "/api/invitation/validate/good", "", nil)
	c.SetParamNames("token")
	c.SetParamValues("good")
	if err := h.Validate(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decode(t, rec)
	if resp["valid"] != true || resp["email"] != "awa@example.org" {
		t.Fatalf("unexpected payload: %+v", resp)
	}

	c, _ = newContext(t, http.MethodGet, "/api/invitation/validate/old", "", nil)
	c.SetParamNames("token")
	c.SetParamValues("old")
	if err := h.Validate(c); !errors.Is(err, domain.ErrInvalidOrExpiredInvite) {
		t.Fatalf("expected invalid invitation, got %v", err)
	}
}

func TestInvitationHandler_Register(t *testing.T) {
	var got ports.RegisterInput
	stub := &stubInvitationService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
			got = in
			return &domain.Account{ID: "u9"}, nil
		},
	}
	body := `{"token":"tok","username":"awa","password":"pw","firstName":"Awa","lastName":"Ndiaye"}`
	c, rec := newContext(t, http.MethodPost, "/api/register", body, nil)

	if err := NewInvitationHandler(stub, stubEnrollment{}).Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Token != "tok" || got.Username != "awa" || got.FirstName != "Awa" || got.LastName != "Ndiaye" {
		t.Fatalf("unexpected service input: %+v", got)
	}
	resp := decode(t, rec)
	if resp["success"] != true || resp["userId"] != "u9" || resp["requires2FASetup"] != true || resp["enrollmentToken"] != "grant-u9" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestInvitationHandler_Register_BadTokenIsForbidden(t *testing.T) {
	for _, svcErr := range []error{domain.ErrInvalidOrExpiredInvite, domain.ErrInvitationExpired} {
		stub := &stubInvitationService{
			registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
				return nil, svcErr
			},
		}
		c, _ := newContext(t, http.MethodPost, "/api/register", `{"token":"x","username":"a","password":"b","firstName":"c","lastName":"d"}`, nil)

		err := NewInvitationHandler(stub, stubEnrollment{}).Register(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusForbidden {
			t.Fatalf("expected 403 HTTPError, got %v", err)
		}
		if he.Message != "invalid or expired invitation" {
			t.Fatalf("unexpected message %v", he.Message)
		}
		if !errors.Is(he.Internal, domain.ErrInvalidOrExpiredInvite) {
			t.Fatalf("internal error lost: %v", he.Internal)
		}
	}
}

func TestInvitationHandler_Register_UsernameTaken(t *testing.T) {
	stub := &stubInvitationService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
			return nil, domain.ErrUsernameTaken
		},
	}
	c, _ := newContext(t, http.MethodPost, "/api/register", `{"token":"x","username":"a","password":"b","firstName":"c","lastName":"d"}`, nil)

	if err := NewInvitationHandler(stub, stubEnrollment{}).Register(c); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}
