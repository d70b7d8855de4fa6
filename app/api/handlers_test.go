package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/b3u/sitekit/app/cfg"
	"github.com/b3u/sitekit/app/database"
	"github.com/b3u/sitekit/app/forms"
)

// stubDoer scripts the outcome of each outbound submission attempt.
type stubDoer struct {
	outcomes []stubOutcome
	calls    int
}

type stubOutcome struct {
	status int
	err    error
}

func (d *stubDoer) Do(req *http.Request) (*http.Response, error) {
	if d.calls >= len(d.outcomes) {
		return nil, errors.New("unexpected request")
	}
	outcome := d.outcomes[d.calls]
	d.calls++

	if outcome.err != nil {
		return nil, outcome.err
	}
	return &http.Response{
		StatusCode: outcome.status,
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func setupTestConfig(t *testing.T, env map[string]string) {
	t.Helper()

	oldArgs := os.Args
	os.Args = []string{"test"}
	t.Cleanup(func() { os.Args = oldArgs })

	for key, value := range env {
		t.Setenv(key, value)
	}

	if _, err := cfg.Load(); err != nil {
		t.Fatal(err)
	}
}

func setupTestServer(t *testing.T, env map[string]string, envBase string, doer forms.Doer) *gin.Engine {
	t.Helper()

	setupTestConfig(t, env)

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	resolver := forms.NewResolver(forms.NewMemoryStore(), envBase, "")
	handler := NewHandler(
		database.NewSubscriberRepository(db),
		database.NewAnalyticsRepository(db),
		resolver,
		forms.NewClient(doer),
	)

	return NewServer(handler)
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubscribe(t *testing.T) {
	r := setupTestServer(t, nil, "https://forms.example.com", nil)

	w := doJSON(r, "POST", "/subscribers", `{"email":"reader@example.com"}`)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	// Same address again is still a success
	w = doJSON(r, "POST", "/subscribers", `{"email":"reader@example.com"}`)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 on duplicate, got %d", w.Code)
	}
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	r := setupTestServer(t, nil, "https://forms.example.com", nil)

	for _, body := range []string{`{"email":"not-an-email"}`, `{"email":""}`, `{}`, `not json`} {
		w := doJSON(r, "POST", "/subscribers", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %q, got %d", body, w.Code)
		}
	}
}

func TestTrackPageView(t *testing.T) {
	r := setupTestServer(t, nil, "https://forms.example.com", nil)

	w := doJSON(r, "POST", "/track", `{"path":"/podcast","userAgent":"Chrome","referrer":"https://instagram.com"}`)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = doJSON(r, "POST", "/track", `{"referrer":"https://instagram.com"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without path, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	r := setupTestServer(t, nil, "https://forms.example.com", nil)

	w := doJSON(r, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["forms_api"] != true {
		t.Errorf("Expected forms_api true, got %v", resp["forms_api"])
	}
}

func TestRelayForm_Verified(t *testing.T) {
	doer := &stubDoer{outcomes: []stubOutcome{{status: 200}}}
	r := setupTestServer(t, nil, "https://forms.example.com", doer)

	form := url.Values{"name": {"Ada"}, "email": {"ada@example.com"}}
	req := httptest.NewRequest("POST", "/relay/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["result"] != "ok" {
		t.Errorf("Expected result ok, got %q", resp["result"])
	}
	if doer.calls != 1 {
		t.Errorf("Expected 1 upstream call, got %d", doer.calls)
	}
}

func TestRelayForm_Fallback(t *testing.T) {
	doer := &stubDoer{outcomes: []stubOutcome{
		{err: errors.New("connection reset")},
		{status: 200},
	}}
	r := setupTestServer(t, nil, "https://forms.example.com", doer)

	w := doJSON(r, "POST", "/relay/contact", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["result"] != "sent" {
		t.Errorf("Expected result sent, got %q", resp["result"])
	}
	if doer.calls != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", doer.calls)
	}
}

func TestRelayForm_ChainExhausted(t *testing.T) {
	doer := &stubDoer{outcomes: []stubOutcome{
		{err: errors.New("connection reset")},
		{err: errors.New("connection reset")},
	}}
	r := setupTestServer(t, nil, "https://forms.example.com", doer)

	w := doJSON(r, "POST", "/relay/contact", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
}

func TestRelayForm_NoEndpoint(t *testing.T) {
	r := setupTestServer(t, nil, "", &stubDoer{})

	w := doJSON(r, "POST", "/relay/contact", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestRelayForm_QueryOverride(t *testing.T) {
	doer := &stubDoer{outcomes: []stubOutcome{{status: 200}}}
	r := setupTestServer(t, nil, "", doer)

	// The override resolves the endpoint for this and later requests
	w := doJSON(r, "POST", "/relay/contact?formsApi=custom.example.com/api", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with override, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLegacySubmit(t *testing.T) {
	r := setupTestServer(t, nil, "https://forms.example.com", nil)

	w := doJSON(r, "POST", "/submit", "")
	if w.Code != http.StatusGone {
		t.Errorf("Expected status 410, got %d", w.Code)
	}
}

func TestLogin_NotConfigured(t *testing.T) {
	r := setupTestServer(t, nil, "https://forms.example.com", nil)

	w := doJSON(r, "POST", "/login", `{"username":"admin","password":"secret"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	// Admin routes are not registered at all
	w = doJSON(r, "GET", "/admin/subscribers", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestAdminSession(t *testing.T) {
	env := map[string]string{
		"ADMIN_USERNAME": "admin",
		"ADMIN_PASSWORD": "secret",
		"SESSION_SECRET": "test-session-secret",
	}
	r := setupTestServer(t, env, "https://forms.example.com", nil)

	// No cookie
	w := doJSON(r, "GET", "/admin/subscribers", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without cookie, got %d", w.Code)
	}

	// Wrong credentials
	w = doJSON(r, "POST", "/login", `{"username":"admin","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for bad credentials, got %d", w.Code)
	}

	// Login and replay the session cookie
	w = doJSON(r, "POST", "/login", `{"username":"admin","password":"secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for login, got %d", w.Code)
	}

	cookies := w.Result().Cookies()
	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == "admin_session" {
			session = c
		}
	}
	if session == nil {
		t.Fatal("Expected admin_session cookie to be set")
	}

	req := httptest.NewRequest("GET", "/admin/subscribers", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with session, got %d", w.Code)
	}

	// Forged token
	req = httptest.NewRequest("GET", "/admin/subscribers", nil)
	req.AddCookie(&http.Cookie{Name: "admin_session", Value: "9999999999.deadbeef"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for forged token, got %d", w.Code)
	}
}

func TestAdminAnalytics(t *testing.T) {
	env := map[string]string{
		"ADMIN_USERNAME": "admin",
		"ADMIN_PASSWORD": "secret",
	}
	r := setupTestServer(t, env, "https://forms.example.com", nil)

	doJSON(r, "POST", "/track", `{"path":"/podcast","userAgent":"Chrome"}`)
	doJSON(r, "POST", "/track", `{"path":"/podcast","userAgent":"Firefox"}`)

	w := loginAndGet(t, r, "/admin/analytics")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp analyticsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Errorf("Expected total 2, got %d", resp.Total)
	}
	if len(resp.TopBrowsers) != 2 {
		t.Errorf("Expected 2 browser buckets, got %d", len(resp.TopBrowsers))
	}
}

func TestAdminRelayEndpoint(t *testing.T) {
	env := map[string]string{
		"ADMIN_USERNAME": "admin",
		"ADMIN_PASSWORD": "secret",
	}
	r := setupTestServer(t, env, "https://forms.example.com", nil)

	w := loginAndGet(t, r, "/admin/relay-endpoint")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["formsApi"] != "https://forms.example.com" {
		t.Errorf("Expected configured endpoint, got %q", resp["formsApi"])
	}
}

// loginAndGet logs in as the configured admin and performs an
// authenticated GET against path.
func loginAndGet(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := doJSON(r, "POST", "/login", `{"username":"admin","password":"secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for login, got %d", w.Code)
	}

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "admin_session" {
			session = c
		}
	}
	if session == nil {
		t.Fatal("Expected admin_session cookie to be set")
	}

	req := httptest.NewRequest("GET", path, nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
