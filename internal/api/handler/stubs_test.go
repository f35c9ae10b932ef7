package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/africtivistes/adisa/internal/api/middleware"
	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
)

type stubAuthService struct {
	loginFn       func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	logoutFn      func(ctx context.Context, s *domain.Session) error
	currentUserFn func(ctx context.Context, s *domain.Session) (*domain.Account, error)
}

func (s *stubAuthService) Authenticate(ctx context.Context, username, password string) (*domain.Identity, error) {
	return nil, domain.ErrInvalidCredentials
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Logout(ctx context.Context, session *domain.Session) error {
	if s.logoutFn == nil {
		return nil
	}
	return s.logoutFn(ctx, session)
}

func (s *stubAuthService) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	return nil, domain.ErrUnauthorized
}

func (s *stubAuthService) CurrentUser(ctx context.Context, session *domain.Session) (*domain.Account, error) {
	return s.currentUserFn(ctx, session)
}

type stubInvitationService struct {
	issueFn    func(ctx context.Context, in ports.IssueInvitationInput) (*domain.Invitation, error)
	validateFn func(ctx context.Context, token string) (*domain.Invitation, error)
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.Account, error)
}

func (s *stubInvitationService) Issue(ctx context.Context, in ports.IssueInvitationInput) (*domain.Invitation, error) {
	return s.issueFn(ctx, in)
}

func (s *stubInvitationService) Validate(ctx context.Context, token string) (*domain.Invitation, error) {
	return s.validateFn(ctx, token)
}

func (s *stubInvitationService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
	return s.registerFn(ctx, in)
}

type stubTwoFactorService struct {
	generateFn     func(ctx context.Context, accountID string) (*ports.TwoFactorSetup, error)
	verifyFn       func(ctx context.Context, accountID, code string) error
	authenticateFn func(ctx context.Context, s *domain.Session, code string) (*domain.Account, error)
}

func (s *stubTwoFactorService) Generate(ctx context.Context, accountID string) (*ports.TwoFactorSetup, error) {
	return s.generateFn(ctx, accountID)
}

func (s *stubTwoFactorService) VerifyAndEnable(ctx context.Context, accountID, code string) error {
	return s.verifyFn(ctx, accountID, code)
}

func (s *stubTwoFactorService) Authenticate(ctx context.Context, session *domain.Session, code string) (*domain.Account, error) {
	return s.authenticateFn(ctx, session, code)
}

type stubAccountService struct {
	listFn   func(ctx context.Context) ([]*domain.Account, error)
	updateFn func(ctx context.Context, id string, u domain.AccountUpdate) (*domain.Account, error)
}

func (s *stubAccountService) List(ctx context.Context) ([]*domain.Account, error) {
	return s.listFn(ctx)
}

func (s *stubAccountService) Update(ctx context.Context, id string, u domain.AccountUpdate) (*domain.Account, error) {
	return s.updateFn(ctx, id, u)
}

func (s *stubAccountService) CreateAdmin(ctx context.Context, in ports.CreateAdminInput) (*domain.Account, bool, error) {
	return nil, false, nil
}

// stubEnrollment grants "grant-<accountID>" to every account.
type stubEnrollment struct{}

func (stubEnrollment) IssueEnrollmentToken(accountID string) (string, error) {
	return "grant-" + accountID, nil
}

func (stubEnrollment) VerifyEnrollmentToken(token, accountID string) error {
	if token == "" || token != "grant-"+accountID {
		return domain.ErrUnauthorized
	}
	return nil
}

var testCookies = middleware.Cookies{Name: "adisa.sid", Secure: true, TTL: time.Hour}

// newContext builds an echo context for method/target with an optional JSON
// body and session.
func newContext(t *testing.T, method, target, body string, session *domain.Session) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if session != nil {
		middleware.SetSession(c, session)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func adminSession() *domain.Session {
	return &domain.Session{ID: "s-admin", AccountID: "admin-1", Username: "root", Role: domain.RoleAdmin}
}

func userSession(accountID string) *domain.Session {
	return &domain.Session{ID: "s-" + accountID, AccountID: accountID, Username: accountID, Role: domain.RoleUser}
}
