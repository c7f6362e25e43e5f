package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitipat21/linkly/pkg/adapters/repository/memory"
	"github.com/nitipat21/linkly/pkg/config"
	"github.com/nitipat21/linkly/pkg/core/services"
	"github.com/nitipat21/linkly/pkg/idgen"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		AppEnv:         "test",
		BaseURL:        "http://short.test",
		FrontendURL:    "http://short.test/dashboard",
		JWTSecret:      testSecret,
		GuestLinkLimit: 50,
		CodeLength:     7,
	}
	repo := memory.NewRepository()
	links := services.NewLinkService(repo, idgen.NewRandomGenerator(cfg.CodeLength), cfg.GuestLinkLimit)
	users := services.NewUserService(repo)
	return NewRouter(cfg, links, users, discardLogger())
}

func doJSON(t *testing.T, router http.Handler, method, path, body string, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "1.2.3.4:5678"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateLink_Guest(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "https://example.com", body["original_url"])
	code, _ := body["short_code"].(string)
	assert.Len(t, code, 7)
	assert.Equal(t, "http://short.test/"+code, body["short_url"])
}

func TestCreateLink_InvalidBody(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/url/create", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":""}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com","expires_at":"not-a-date"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateLink_CustomCodeConflict(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com","custom_code":"mine"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"other.com","custom_code":"mine"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRedirect(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com","custom_code":"go-here"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/go-here", "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Location"))

	rec = doJSON(t, router, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRedirect_DeactivatedAndExpired(t *testing.T) {
	router := newTestRouter(t)
	token := signToken(t, testSecret, "user-1", time.Hour)

	rec := doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com","custom_code":"dead"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com","custom_code":"old","expires_at":"2001-01-01"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/url/deactivate/dead", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/dead", "", "")
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Body.String(), "deactivated")

	rec = doJSON(t, router, http.MethodGet, "/old", "", "")
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestUpdateLink(t *testing.T) {
	router := newTestRouter(t)
	token := signToken(t, testSecret, "user-1", time.Hour)

	rec := doJSON(t, router, http.MethodPost, "/api/url/create",
		`{"url":"example.com","custom_code":"mine","expires_at":"2030-01-01"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Without a session the endpoint is closed.
	rec = doJSON(t, router, http.MethodPatch, "/api/url/update/mine", `{"url":"other.com"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Somebody else's session is forbidden.
	other := signToken(t, testSecret, "user-2", time.Hour)
	rec = doJSON(t, router, http.MethodPatch, "/api/url/update/mine", `{"url":"other.com"}`, other)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Absent expires_at keeps the expiry.
	rec = doJSON(t, router, http.MethodPatch, "/api/url/update/mine", `{"url":"other.com"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "https://other.com", body["original_url"])
	assert.NotNil(t, body["expires_at"])

	// Explicit null clears it.
	rec = doJSON(t, router, http.MethodPatch, "/api/url/update/mine", `{"expires_at":null}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Nil(t, body["expires_at"])

	// A fresh value sets it again.
	rec = doJSON(t, router, http.MethodPatch, "/api/url/update/mine", `{"expires_at":"2031-06-01T00:00:00Z"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "2031-06-01T00:00:00Z", body["expires_at"])

	// An empty patch is rejected.
	rec = doJSON(t, router, http.MethodPatch, "/api/url/update/mine", `{}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad custom code is rejected.
	rec = doJSON(t, router, http.MethodPatch, "/api/url/update/mine", `{"custom_code":"has space"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteLink_CollapsesUnknownAndForeign(t *testing.T) {
	router := newTestRouter(t)
	owner := signToken(t, testSecret, "user-1", time.Hour)
	other := signToken(t, testSecret, "user-2", time.Hour)

	rec := doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com","custom_code":"mine"}`, owner)
	require.Equal(t, http.StatusCreated, rec.Code)

	recForeign := doJSON(t, router, http.MethodDelete, "/api/url/delete/mine", "", other)
	recUnknown := doJSON(t, router, http.MethodDelete, "/api/url/delete/missing", "", other)
	assert.Equal(t, http.StatusNotFound, recForeign.Code)
	assert.Equal(t, http.StatusNotFound, recUnknown.Code)
	assert.Equal(t, recForeign.Body.String(), recUnknown.Body.String())

	rec = doJSON(t, router, http.MethodDelete, "/api/url/delete/mine", "", owner)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/mine", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	router := newTestRouter(t)
	token := signToken(t, testSecret, "user-1", time.Hour)

	rec := doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com","custom_code":"mine"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	doJSON(t, router, http.MethodGet, "/mine", "", "")
	doJSON(t, router, http.MethodGet, "/mine", "", "")

	rec = doJSON(t, router, http.MethodGet, "/api/url/stats/mine", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "mine", stats.ShortCode)
	assert.Equal(t, int64(2), stats.Clicks)
	assert.True(t, stats.IsActive)

	other := signToken(t, testSecret, "user-2", time.Hour)
	rec = doJSON(t, router, http.MethodGet, "/api/url/stats/mine", "", other)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStats_GuestLink(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com","custom_code":"anon"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	// Guest links have no owner, so nobody can read their stats.
	token := signToken(t, testSecret, "user-1", time.Hour)
	rec = doJSON(t, router, http.MethodGet, "/api/url/stats/anon", "", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListUserLinks(t *testing.T) {
	router := newTestRouter(t)
	token := signToken(t, testSecret, "user-1", time.Hour)

	rec := doJSON(t, router, http.MethodGet, "/api/url/user", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Empty(t, body["data"], "no links yet")

	rec = doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/url/user", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 1)
}

func TestGuestQuotaOverHTTP(t *testing.T) {
	cfg := &config.Config{
		AppEnv:         "test",
		BaseURL:        "http://short.test",
		JWTSecret:      testSecret,
		GuestLinkLimit: 2,
		CodeLength:     7,
	}
	repo := memory.NewRepository()
	links := services.NewLinkService(repo, idgen.NewRandomGenerator(cfg.CodeLength), cfg.GuestLinkLimit)
	users := services.NewUserService(repo)
	router := NewRouter(cfg, links, users, discardLogger())

	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com"}`, "")
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/url/create", `{"url":"example.com"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "guest limit reached")

	// A different origin has its own quota.
	req := httptest.NewRequest(http.MethodPost, "/api/url/create", strings.NewReader(`{"url":"example.com"}`))
	req.RemoteAddr = "5.6.7.8:1234"
	req.Header.Set("Content-Type", "application/json")
	recOther := httptest.NewRecorder()
	router.ServeHTTP(recOther, req)
	assert.Equal(t, http.StatusCreated, recOther.Code)
}

func TestRegisterLoginProfile(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"s3cret"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"s3cret"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"s3cret"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var session string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == authCookieName {
			session = cookie.Value
		}
	}
	require.NotEmpty(t, session, "login must set the session cookie")

	rec = doJSON(t, router, http.MethodGet, "/api/auth/profile", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")
	assert.NotContains(t, rec.Body.String(), "password", "hash must never leave the server")

	rec = doJSON(t, router, http.MethodGet, "/api/auth/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ClearsCookie(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	var found bool
	for _, cookie := range cookies {
		if cookie.Name == authCookieName {
			found = true
			assert.Empty(t, cookie.Value)
			assert.True(t, cookie.Expires.Before(time.Now()))
		}
	}
	assert.True(t, found)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
