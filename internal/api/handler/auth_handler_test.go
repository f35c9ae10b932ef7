package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
)

func TestAuthHandler_Login_WithoutTwoFactor(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			if username != "alice" || password != "s3cret" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &ports.LoginResult{
				Session: &domain.Session{ID: "s1", AccountID: "u1", Username: "alice", Email: "alice@example.org", Role: domain.RoleUser},
				Token:   "signed-token",
			}, nil
		},
	}
	h := NewAuthHandler(stub, testCookies)

	c, rec := newContext(t, http.MethodPost, "/api/login", `{"username":"alice","password":"s3cret"}`, nil)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode(t, rec)
	if resp["success"] != true || resp["requires2FA"] != false {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["id"] != "u1" || user["username"] != "alice" || user["role"] != "user" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}

	cookie := findCookie(rec, testCookies.Name)
	if cookie == nil || cookie.Value != "signed-token" || !cookie.HttpOnly || !cookie.Secure {
		t.Fatalf("session cookie not set correctly: %+v", cookie)
	}
}

func TestAuthHandler_Login_RequiresTwoFactor(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			return &ports.LoginResult{
				Session: &domain.Session{ID: "s1", AccountID: "u1", Username: "alice", TwoFactorEnabled: true},
				Token:   "pending-token",
			}, nil
		},
	}
	h := NewAuthHandler(stub, testCookies)

	c, rec := newContext(t, http.MethodPost, "/api/login", `{"username":"alice","password":"s3cret"}`, nil)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	resp := decode(t, rec)
	if resp["requires2FA"] != true || resp["userId"] != "u1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, ok := resp["user"]; ok {
		t.Fatalf("pending login must not expose the user: %+v", resp)
	}
	if findCookie(rec, testCookies.Name) == nil {
		t.Fatal("expected session cookie for pending session")
	}
}

func TestAuthHandler_Login_Failures(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want error
	}{
		{"bad credentials", `{"username":"alice","password":"nope"}`, domain.ErrInvalidCredentials, domain.ErrInvalidCredentials},
		{"inactive", `{"username":"alice","password":"s3cret"}`, domain.ErrAccountInactive, domain.ErrAccountInactive},
		{"missing password", `{"username":"alice"}`, nil, domain.ErrValidation},
		{"not json", `not-json`, nil, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAuthService{
				loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
					if tc.err == nil {
						t.Fatal("service should not be called")
					}
					return nil, tc.err
				},
			}
			c, rec := newContext(t, http.MethodPost, "/api/login", tc.body, nil)

			err := NewAuthHandler(stub, testCookies).Login(c)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if findCookie(rec, testCookies.Name) != nil {
				t.Fatal("failed login must not set a cookie")
			}
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var closed *domain.Session
	stub := &stubAuthService{
		logoutFn: func(ctx context.Context, s *domain.Session) error {
			closed = s
			return nil
		},
	}
	h := NewAuthHandler(stub, testCookies)
	session := userSession("u1")

	t.Run("post", func(t *testing.T) {
		c, rec := newContext(t, http.MethodPost, "/api/logout", "", session)
		if err := h.Logout(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK || decode(t, rec)["success"] != true {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
		if closed != session {
			t.Fatal("session was not closed")
		}
		if cookie := findCookie(rec, testCookies.Name); cookie == nil || cookie.MaxAge >= 0 {
			t.Fatalf("cookie not cleared: %+v", cookie)
		}
	})

	t.Run("get redirects", func(t *testing.T) {
		c, rec := newContext(t, http.MethodGet, "/api/logout", "", session)
		if err := h.Logout(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
			t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("without session", func(t *testing.T) {
		c, rec := newContext(t, http.MethodPost, "/api/logout", "", nil)
		if err := h.Logout(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Check(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, testCookies)

	c, rec := newContext(t, http.MethodGet, "/api/auth/check", "", userSession("u1"))
	if err := h.Check(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if decode(t, rec)["authenticated"] != true {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}

	c, _ = newContext(t, http.MethodGet, "/api/auth/check", "", nil)
	if err := h.Check(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	pending := userSession("u2")
	pending.TwoFactorEnabled = true
	pending.TwoFactorVerified = false
	c, _ = newContext(t, http.MethodGet, "/api/auth/check", "", pending)
	if err := h.Check(c); !errors.Is(err, domain.ErrTwoFactorRequired) {
		t.Fatalf("expected ErrTwoFactorRequired, got %v", err)
	}
}

func TestAuthHandler_CurrentUser(t *testing.T) {
	stub := &stubAuthService{
		currentUserFn: func(ctx context.Context, s *domain.Session) (*domain.Account, error) {
			return &domain.Account{
				ID:               s.AccountID,
				Username:         "alice",
				Email:            "alice@example.org",
				FirstName:        "Alice",
				LastName:         "Diop",
				Role:             domain.RoleUser,
				TwoFactorEnabled: true,
				PasswordHash:     "$2a$10$hash",
				TwoFactorSecret:  "SECRET",
			}, nil
		},
	}
	h := NewAuthHandler(stub, testCookies)

	c, rec := newContext(t, http.MethodGet, "/api/auth/user", "", userSession("u1"))
	if err := h.CurrentUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	resp := decode(t, rec)
	if resp["id"] != "u1" || resp["firstName"] != "Alice" || resp["twoFactorEnabled"] != true {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	for _, secret := range []string{"passwordHash", "password_hash", "twoFactorSecret"} {
		if _, ok := resp[secret]; ok {
			t.Fatalf("projection leaks %s", secret)
		}
	}
}
