package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func postJSON(t *testing.T, handler http.Handler, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	payload := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	return rec, payload
}

func getJSON(t *testing.T, handler http.Handler, path, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	payload := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	return rec, payload
}

// Full signup flow against an unconfigured SMTP: the verification token is
// returned in the response so the flow can complete without a mailbox.
func TestSignUpVerifySignInFlow(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*").Handler()

	rec, payload := postJSON(t, handler, "/api/auth/signup", "", map[string]any{
		"email":       "new@example.com",
		"password":    "super-secret",
		"displayName": "Newcomer",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body = %s", rec.Code, rec.Body.String())
	}
	devToken, _ := payload["devVerificationToken"].(string)
	if devToken == "" {
		t.Fatal("expected devVerificationToken when SMTP is not configured")
	}

	// Signing in before verification is rejected.
	rec, _ = postJSON(t, handler, "/api/auth/signin", "", map[string]any{
		"email":    "new@example.com",
		"password": "super-secret",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unverified signin status = %d, want 403", rec.Code)
	}

	rec, _ = postJSON(t, handler, "/api/auth/verify-email", "", map[string]any{"token": devToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec, payload = postJSON(t, handler, "/api/auth/signin", "", map[string]any{
		"email":    "new@example.com",
		"password": "super-secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d, body = %s", rec.Code, rec.Body.String())
	}
	accessToken, _ := payload["accessToken"].(string)
	refreshToken, _ := payload["refreshToken"].(string)
	if accessToken == "" || refreshToken == "" {
		t.Fatalf("expected token pair, got %v", payload)
	}

	rec, payload = getJSON(t, handler, "/api/session", accessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d", rec.Code)
	}
	if payload["authenticated"] != true || payload["userName"] != "Newcomer" {
		t.Fatalf("session payload = %v", payload)
	}

	rec, payload = postJSON(t, handler, "/api/session/refresh", "", map[string]any{"refreshToken": refreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", rec.Code)
	}
	if payload["token"] == "" {
		t.Fatalf("refresh payload = %v", payload)
	}

	rec, _ = postJSON(t, handler, "/api/session/logout", accessToken, map[string]any{"refreshToken": payload["refreshToken"]})
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*").Handler()

	body := map[string]any{
		"email":       "dup@example.com",
		"password":    "super-secret",
		"displayName": "First",
	}
	rec, _ := postJSON(t, handler, "/api/auth/signup", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first signup status = %d", rec.Code)
	}
	rec, _ = postJSON(t, handler, "/api/auth/signup", "", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d, want 409", rec.Code)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*").Handler()
	env.signedInSession(t)

	rec, payload := postJSON(t, handler, "/api/auth/reset-password/request", "", map[string]any{
		"email": "avery@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("request reset status = %d", rec.Code)
	}
	token, _ := payload["devResetToken"].(string)
	if token == "" {
		t.Fatal("expected devResetToken when SMTP is not configured")
	}

	rec, _ = postJSON(t, handler, "/api/auth/reset-password", "", map[string]any{
		"token":       token,
		"newPassword": "brand-new-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// The token is single-use.
	rec, _ = postJSON(t, handler, "/api/auth/reset-password", "", map[string]any{
		"token":       token,
		"newPassword": "another-pass",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reused token status = %d, want 400", rec.Code)
	}
}

// An unknown email still returns 200 with no token, so the endpoint cannot be
// used to probe for accounts.
func TestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*").Handler()

	rec, payload := postJSON(t, handler, "/api/auth/reset-password/request", "", map[string]any{
		"email": "nobody@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, ok := payload["devResetToken"]; ok {
		t.Fatal("unknown email must not produce a reset token")
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*").Handler()

	for _, path := range []string{"/api/document", "/api/history", "/api/search"} {
		rec, _ := getJSON(t, handler, path, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, rec.Code)
		}
	}

	rec, _ := getJSON(t, handler, "/api/document", "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", rec.Code)
	}
}
