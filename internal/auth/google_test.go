package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	sharedauth "docanalyzer/internal/shared/auth"
)

func testConfig() GoogleConfig {
	return GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		UIRedirect:   "http://localhost/ui",
	}
}

func newTestRouter(svc *GoogleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestStartRedirectsToGoogle(t *testing.T) {
	signer, _ := sharedauth.NewSigner("test-secret", "dev")
	svc := NewGoogleService(testConfig(), signer)

	resp := get(newTestRouter(svc), "/api/v1/auth/google/start?returnTo=/documents/doc-1")
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if !strings.Contains(loc.Host, "google") {
		t.Fatalf("unexpected redirect host: %s", loc.Host)
	}
	login, ok := svc.pending.consume(loc.Query().Get("state"))
	if !ok || login.returnTo != "/documents/doc-1" {
		t.Fatalf("expected pending login with return path, got %#v ok=%v", login, ok)
	}
}

func TestStartRejectsAbsoluteReturnTo(t *testing.T) {
	signer, _ := sharedauth.NewSigner("test-secret", "dev")
	svc := NewGoogleService(testConfig(), signer)

	resp := get(newTestRouter(svc), "/api/v1/auth/google/start?returnTo="+url.QueryEscape("//evil.example/x"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if svc.pending.len() != 0 {
		t.Fatalf("expected no pending login")
	}
}

func TestStartNotConfigured(t *testing.T) {
	svc := NewGoogleService(GoogleConfig{}, nil)

	resp := get(newTestRouter(svc), "/api/v1/auth/google/start")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "auth_not_configured") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	svc := NewGoogleService(testConfig(), nil)

	resp := get(newTestRouter(svc), "/api/v1/auth/google/callback?state=nope&code=abc")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCallbackIssuesToken(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_ = r.ParseForm()
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer at-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":             "42",
				"email":          "ada@example.com",
				"verified_email": true,
				"name":           "Ada",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer provider.Close()

	signer, _ := sharedauth.NewSigner("test-secret", "dev")
	svc := NewGoogleService(testConfig(), signer)
	svc.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:   provider.URL + "/auth",
		TokenURL:  provider.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	svc.userInfoURL = provider.URL + "/userinfo"
	svc.pending.put("s-1", "/documents", time.Minute)

	resp := get(newTestRouter(svc), "/api/v1/auth/google/callback?state=s-1&code=good-code")
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", resp.Code, resp.Body.String())
	}
	loc, _ := url.Parse(resp.Header().Get("Location"))
	if loc.Host != "localhost" || loc.Query().Get("returnTo") != "/documents" {
		t.Fatalf("unexpected redirect: %s", loc)
	}
	claims, err := signer.Verify(loc.Query().Get("token"))
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if claims.Sub != "google:42" || claims.Email != "ada@example.com" {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestCallbackForwardsDenial(t *testing.T) {
	signer, _ := sharedauth.NewSigner("test-secret", "dev")
	svc := NewGoogleService(testConfig(), signer)
	svc.pending.put("s-2", "", time.Minute)

	resp := get(newTestRouter(svc), "/api/v1/auth/google/callback?state=s-2&error=access_denied")
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	loc, _ := url.Parse(resp.Header().Get("Location"))
	if loc.Query().Get("error") != "access_denied" || loc.Query().Get("token") != "" {
		t.Fatalf("unexpected redirect: %s", loc)
	}
}

func TestProfileClaimsDropUnverifiedEmail(t *testing.T) {
	claims := googleProfile{Sub: "7", Email: "x@example.com", Name: "X"}.claims()
	if claims.Sub != "google:7" || claims.Email != "" || claims.Name != "X" {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestPendingLoginsExpireAndPrune(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newPendingLogins(func() time.Time { return now })
	store.put("old", "", time.Second)
	store.put("fresh", "/x", time.Hour)

	now = now.Add(time.Minute)
	if _, ok := store.consume("old"); ok {
		t.Fatalf("expected expired state to be rejected")
	}
	if _, ok := store.consume("fresh"); !ok {
		t.Fatalf("expected fresh state to be accepted")
	}
	if _, ok := store.consume("fresh"); ok {
		t.Fatalf("expected state to be single use")
	}

	store.put("a", "", time.Second)
	now = now.Add(time.Minute)
	store.put("b", "", time.Second)
	if store.len() != 1 {
		t.Fatalf("expected expired entries pruned, got %d", store.len())
	}
}

func TestSafeReturnPath(t *testing.T) {
	cases := map[string]bool{
		"":                  true,
		"/documents/doc-1":  true,
		"/a?b=c":            true,
		"//evil.example":    false,
		"https://evil.test": false,
		"relative":          false,
		`/\evil.example`:    false,
	}
	for raw, want := range cases {
		if _, ok := safeReturnPath(raw); ok != want {
			t.Fatalf("safeReturnPath(%q) = %v, want %v", raw, ok, want)
		}
	}
}

func TestUIURL(t *testing.T) {
	got, err := uiURL("http://localhost/ui?x=1", "/docs", url.Values{"token": {"tok"}})
	if err != nil {
		t.Fatalf("ui url: %v", err)
	}
	u, _ := url.Parse(got)
	if u.Query().Get("token") != "tok" || u.Query().Get("x") != "1" || u.Query().Get("returnTo") != "/docs" {
		t.Fatalf("unexpected url: %s", got)
	}
	if _, err := uiURL("", "", nil); err == nil {
		t.Fatalf("expected error for empty redirect")
	}
}
