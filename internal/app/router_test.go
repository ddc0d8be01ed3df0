package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/icarus-art/icarus/internal/accounts"
	"github.com/icarus-art/icarus/internal/app"
	"github.com/icarus-art/icarus/internal/auth"
	"github.com/icarus-art/icarus/internal/observability"
	"github.com/icarus-art/icarus/internal/pages"
	"github.com/icarus-art/icarus/internal/posts"
	"github.com/icarus-art/icarus/internal/shared"
	"github.com/icarus-art/icarus/internal/testing/memstore"
	"github.com/icarus-art/icarus/internal/view"
	"github.com/icarus-art/icarus/internal/waitlist"
	_ "github.com/icarus-art/icarus/testing"
)

type harness struct {
	server   *httptest.Server
	accounts *accounts.Service
	store    *memstore.Accounts
	sessions *memstore.Sessions
	waitlist *memstore.Waitlist
	redis    *miniredis.Miniredis
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &app.Config{
		AppEnv:            "test",
		AppName:           "Icarus",
		AppTagline:        "Real Creativity. Real People.",
		AppRequestTimeout: 5 * time.Second,
		SessionCookie:     "icarus_session",
		SessionTTL:        time.Hour,
		SessionSecret:     "session-secret",
		CSRFSecret:        "csrf-secret",
		DefaultTheme:      "earth",
		PasswordMinLength: 8,
		BcryptCost:        bcrypt.MinCost,
	}
	sessionManager := shared.NewSessionManager(client, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, false)
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	metrics := observability.NewMetrics()

	store := memstore.NewAccounts()
	sessionStore := memstore.NewSessions()
	authService := auth.NewService(sessionStore, sessionManager, nil)
	accountService := accounts.NewService(store, auth.NewHasher(cfg.BcryptCost), authService, cfg.AccountsConfig())
	waitlistStore := memstore.NewWaitlist()
	waitlistService := waitlist.NewService(waitlistStore)
	postService := posts.NewService(memstore.NewPosts(store))

	router := app.NewRouter(app.RouterParams{
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AccountService:  accountService,
		AccountsHandler: accounts.NewHandler(nil, accountService, authService, metrics),
		WaitlistHandler: waitlist.NewHandler(nil, waitlistService, metrics),
		PostsHandler:    posts.NewHandler(nil, postService, metrics),
		PagesHandler: pages.NewHandler(nil, templates, csrfManager, accountService, postService, authService, metrics, pages.Config{
			AppName:      cfg.AppName,
			Tagline:      cfg.AppTagline,
			DefaultTheme: accounts.ThemeEarth,
		}),
		Metrics: metrics,
		HealthChecks: map[string]app.HealthCheck{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &harness{server: server, accounts: accountService, store: store, sessions: sessionStore, waitlist: waitlistStore, redis: mr}
}

// browser is a cookie-keeping client that does not follow redirects.
func (h *harness) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (h *harness) sessionCookie(t *testing.T, c *http.Client) string {
	t.Helper()
	u, err := url.Parse(h.server.URL)
	require.NoError(t, err)
	for _, cookie := range c.Jar.Cookies(u) {
		if cookie.Name == "icarus_session" {
			return cookie.Value
		}
	}
	return ""
}

type apiResponse struct {
	Success     bool             `json:"success"`
	Message     string           `json:"message"`
	Error       string           `json:"error"`
	Redirect    string           `json:"redirect"`
	Theme       string           `json:"theme"`
	User        *accounts.View   `json:"user"`
	Entry       *waitlist.Entry  `json:"entry"`
	Count       int              `json:"count"`
	Entries     []waitlist.Entry `json:"entries"`
	Post        *posts.View      `json:"post"`
	Posts       []posts.View     `json:"posts"`
	Total       int              `json:"total"`
	Pages       int              `json:"pages"`
	CurrentPage int              `json:"current_page"`
	Liked       bool             `json:"liked"`
	Likes       int64            `json:"likes"`
	Bookmarked  bool             `json:"bookmarked"`
	Bookmarks   int64            `json:"bookmarks"`
	Stats       *posts.Stats     `json:"stats"`
}

func (h *harness) call(t *testing.T, c *http.Client, method, path string, body any) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	return h.send(t, c, method, path, reader)
}

// send posts body verbatim, for payloads json.Marshal cannot produce.
func (h *harness) send(t *testing.T, c *http.Client, method, path string, reader io.Reader) (int, apiResponse) {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (h *harness) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(h.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func signupBody(email string) map[string]string {
	return map[string]string{"email": email, "password": "hunter22", "name": "Ada Lovelace"}
}

func TestSignupEstablishesSession(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)

	status, body := h.call(t, c, http.MethodPost, "/api/signup", signupBody("  Ada@Example.COM "))
	require.Equal(t, http.StatusCreated, status, body.Error)
	assert.True(t, body.Success)
	assert.Equal(t, "Account created successfully", body.Message)
	assert.Equal(t, "/dashboard", body.Redirect)
	require.NotNil(t, body.User)
	assert.Equal(t, "ada@example.com", body.User.Email)
	assert.Equal(t, accounts.ThemeEarth, body.User.Theme)

	status, body = h.call(t, c, http.MethodGet, "/api/user", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, body.User)
	assert.Equal(t, "ada@example.com", body.User.Email)
	assert.Equal(t, "ada", *body.User.Username)
	assert.Len(t, h.sessions.Records(body.User.ID), 1)
}

func TestAnonymousAPIRequestsAreRejected(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/user"},
		{http.MethodPut, "/api/user/theme"},
		{http.MethodPut, "/api/user/profile"},
		{http.MethodPut, "/api/user/password"},
		{http.MethodDelete, "/api/user/delete"},
		{http.MethodGet, "/api/waitlist"},
	} {
		status, body := h.call(t, c, tc.method, tc.path, map[string]string{})
		assert.Equal(t, http.StatusUnauthorized, status, tc.path)
		assert.False(t, body.Success)
		assert.Equal(t, "Authentication required", body.Error)
	}
}

func TestDuplicateSignupConflicts(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)

	status, _ := h.call(t, c, http.MethodPost, "/api/signup", signupBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, status)

	status, body := h.call(t, h.browser(t), http.MethodPost, "/api/signup", signupBody("ADA@example.com"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already registered", body.Error)
	assert.Equal(t, 1, h.store.Count())
}

func TestSignupValidation(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)

	status, body := h.call(t, c, http.MethodPost, "/api/signup", map[string]string{"email": "not-an-email", "password": "hunter22"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid email address", body.Error)

	status, body = h.call(t, c, http.MethodPost, "/api/signup", map[string]string{"email": "ada@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Password must be at least 8 characters", body.Error)

	status, body = h.call(t, c, http.MethodPost, "/api/signup", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No data provided", body.Error)

	assert.Equal(t, 0, h.store.Count())
}

func TestSigninRegeneratesSessionAndLogoutEndsIt(t *testing.T) {
	h := newHarness(t)
	_, err := h.accounts.Create(context.Background(), accounts.SignupInput{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)

	c := h.browser(t)
	resp, _ := h.get(t, c, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	anonymous := h.sessionCookie(t, c)
	require.NotEmpty(t, anonymous)

	status, body := h.call(t, c, http.MethodPost, "/api/signin", map[string]string{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", body.Error)

	status, body = h.call(t, c, http.MethodPost, "/api/signin", map[string]string{"email": "nobody@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", body.Error)

	status, body = h.call(t, c, http.MethodPost, "/api/signin", map[string]string{"email": "ADA@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, status, body.Error)
	assert.Equal(t, "Signed in successfully", body.Message)
	signedIn := h.sessionCookie(t, c)
	assert.NotEqual(t, anonymous, signedIn)

	anonymousID, _, _ := strings.Cut(anonymous, ".")
	assert.False(t, h.redis.Exists("session:"+anonymousID))

	status, _ = h.call(t, c, http.MethodGet, "/api/user", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = h.call(t, c, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Signed out", body.Message)

	status, _ = h.call(t, c, http.MethodGet, "/api/user", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestStolenCookieStopsWorkingAfterLogout(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)
	status, _ := h.call(t, c, http.MethodPost, "/api/signup", signupBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, status)
	cookie := h.sessionCookie(t, c)

	status, _ = h.call(t, c, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, status)

	req, err := http.NewRequest(http.MethodGet, h.server.URL+"/api/user", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "icarus_session", Value: cookie})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestThemeAndProfileUpdates(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)
	status, _ := h.call(t, c, http.MethodPost, "/api/signup", signupBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, status)

	status, body := h.call(t, c, http.MethodPut, "/api/user/theme", map[string]string{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid theme", body.Error)

	status, body = h.call(t, c, http.MethodPut, "/api/user/theme", map[string]string{"theme": "dark"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dark", body.Theme)

	_, page := h.get(t, c, "/dashboard")
	assert.Contains(t, page, `data-theme="dark"`)

	status, _ = h.call(t, h.browser(t), http.MethodPost, "/api/signup", signupBody("grace@example.com"))
	require.Equal(t, http.StatusCreated, status)

	status, body = h.call(t, c, http.MethodPut, "/api/user/profile", map[string]string{"username": "grace"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Username already taken", body.Error)

	status, body = h.call(t, c, http.MethodPut, "/api/user/profile", map[string]string{"email": "Grace@Example.com"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already registered", body.Error)

	status, body = h.call(t, c, http.MethodPut, "/api/user/profile", map[string]string{"username": "Countess", "bio": "First programmer"})
	require.Equal(t, http.StatusOK, status, body.Error)
	require.NotNil(t, body.User)
	assert.Equal(t, "countess", *body.User.Username)
	assert.Equal(t, "First programmer", *body.User.Bio)
	assert.Equal(t, "@countess", body.User.Handle)
}

func TestPasswordChangeAndDeletion(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)
	status, _ := h.call(t, c, http.MethodPost, "/api/signup", signupBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, status)

	status, body := h.call(t, c, http.MethodPut, "/api/user/password", map[string]string{"current_password": "nope-nope", "new_password": "analytical"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Current password is incorrect", body.Error)

	status, body = h.call(t, c, http.MethodPut, "/api/user/password", map[string]string{"current_password": "hunter22", "new_password": "analytical"})
	require.Equal(t, http.StatusOK, status, body.Error)

	other := h.browser(t)
	status, _ = h.call(t, other, http.MethodPost, "/api/signin", map[string]string{"email": "ada@example.com", "password": "analytical"})
	require.Equal(t, http.StatusOK, status)

	status, body = h.call(t, c, http.MethodDelete, "/api/user/delete", map[string]string{"password": "hunter22"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Password is incorrect", body.Error)

	status, body = h.call(t, c, http.MethodDelete, "/api/user/delete", map[string]string{"password": "analytical"})
	require.Equal(t, http.StatusOK, status, body.Error)
	assert.Equal(t, "/", body.Redirect)
	assert.Equal(t, 0, h.store.Count())

	status, _ = h.call(t, c, http.MethodGet, "/api/user", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = h.call(t, other, http.MethodGet, "/api/user", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDeactivationEndsSessions(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)
	status, body := h.call(t, c, http.MethodPost, "/api/signup", signupBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, status)

	require.NoError(t, h.accounts.SetActive(context.Background(), body.User.ID, false))

	status, _ = h.call(t, c, http.MethodGet, "/api/user", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.call(t, c, http.MethodPost, "/api/signin", map[string]string{"email": "ada@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestWaitlistSubmission(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)

	status, body := h.call(t, c, http.MethodPost, "/waitlist/submit", map[string]string{"email": "Painter@Example.com", "name": "Ada", "role": "artist"})
	require.Equal(t, http.StatusCreated, status, body.Error)
	assert.Equal(t, "Successfully joined the waitlist!", body.Message)
	require.NotNil(t, body.Entry)
	assert.Equal(t, "painter@example.com", body.Entry.Email)
	assert.Equal(t, waitlist.DefaultSource, body.Entry.Source)

	status, body = h.call(t, c, http.MethodPost, "/waitlist/submit", map[string]string{"email": "painter@example.com"})
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	assert.Equal(t, "You're already on the waitlist!", body.Message)

	status, body = h.call(t, c, http.MethodPost, "/waitlist/submit", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, body.Success)

	status, _ = h.call(t, c, http.MethodPost, "/api/signup", signupBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, status)
	status, body = h.call(t, c, http.MethodGet, "/api/waitlist", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Entries, 1)
}

func TestStatelessRoutesStoreNoSession(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)

	for _, path := range []string{"/healthz", "/metrics", "/static/css/app.css"} {
		resp, _ := h.get(t, c, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Empty(t, resp.Cookies(), path)
	}
	assert.Empty(t, h.sessionCookie(t, c))
	assert.Empty(t, h.redis.Keys())

	resp, _ := h.get(t, c, "/signin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, h.sessionCookie(t, c))
	assert.Len(t, h.redis.Keys(), 1)
}

func TestMalformedJSONIsRejected(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)

	for _, path := range []string{"/waitlist/submit", "/api/signup", "/api/signin"} {
		status, body := h.send(t, c, http.MethodPost, path, strings.NewReader(`{"email": `))
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.False(t, body.Success, path)
		assert.Equal(t, "Invalid JSON payload", body.Error, path)
	}

	status, body := h.send(t, c, http.MethodPost, "/waitlist/submit", strings.NewReader(""))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No data provided", body.Error)

	entries, err := h.waitlist.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAccountsAndWaitlistAreSeparateDomains(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("signup then join", func(t *testing.T) {
		c := h.browser(t)
		status, body := h.call(t, c, http.MethodPost, "/api/signup", signupBody("demo@icarus.art"))
		require.Equal(t, http.StatusCreated, status, body.Error)

		status, body = h.call(t, c, http.MethodPost, "/waitlist/submit", map[string]string{"email": "demo@icarus.art"})
		require.Equal(t, http.StatusCreated, status, body.Error)
		require.NotNil(t, body.Entry)
		assert.Equal(t, "demo@icarus.art", body.Entry.Email)

		status, body = h.call(t, c, http.MethodPost, "/waitlist/submit", map[string]string{"email": "DEMO@icarus.art"})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "You're already on the waitlist!", body.Message)
		assert.Nil(t, body.Entry)
	})

	t.Run("join then signup", func(t *testing.T) {
		c := h.browser(t)
		status, body := h.call(t, c, http.MethodPost, "/waitlist/submit", map[string]string{"email": "night@icarus.art"})
		require.Equal(t, http.StatusCreated, status, body.Error)

		status, body = h.call(t, c, http.MethodPost, "/api/signup", signupBody("night@icarus.art"))
		require.Equal(t, http.StatusCreated, status, body.Error)
		require.NotNil(t, body.User)
		assert.Equal(t, "night@icarus.art", body.User.Email)
	})

	entries, err := h.waitlist.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 2, h.store.Count())
}

func TestPostsLifecycle(t *testing.T) {
	h := newHarness(t)
	author := h.browser(t)
	fan := h.browser(t)

	status, _ := h.call(t, h.browser(t), http.MethodGet, "/api/posts", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.call(t, author, http.MethodPost, "/api/signup", signupBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, status)
	status, _ = h.call(t, fan, http.MethodPost, "/api/signup", signupBody("grace@example.com"))
	require.Equal(t, http.StatusCreated, status)

	status, body := h.call(t, author, http.MethodPost, "/api/posts", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Content or media is required", body.Error)

	status, body = h.call(t, author, http.MethodPost, "/api/posts", map[string]string{"content": "Etude", "category": "music"})
	require.Equal(t, http.StatusCreated, status, body.Error)
	assert.Equal(t, "Post created successfully", body.Message)
	require.NotNil(t, body.Post)
	assert.Equal(t, posts.CategoryMusic, body.Post.Category)
	assert.Equal(t, "Ada Lovelace", body.Post.AuthorName)
	assert.Equal(t, "now", body.Post.TimeAgo)
	etude := body.Post.ID

	status, body = h.call(t, author, http.MethodPost, "/api/posts", map[string]string{"content": "Sketch", "category": "poetry"})
	require.Equal(t, http.StatusCreated, status, body.Error)
	assert.Equal(t, posts.CategoryArt, body.Post.Category)

	status, body = h.call(t, fan, http.MethodGet, "/api/posts?per_page=1&page=abc", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 2, body.Pages)
	assert.Equal(t, 1, body.CurrentPage)
	require.Len(t, body.Posts, 1)
	assert.Equal(t, "Sketch", *body.Posts[0].Content)

	status, body = h.call(t, fan, http.MethodGet, "/api/posts?category=music", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.Total)

	status, _ = h.call(t, fan, http.MethodGet, "/api/posts?category=poetry", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	likePath := fmt.Sprintf("/api/posts/%d/like", etude)
	status, body = h.call(t, fan, http.MethodPost, likePath, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, body.Liked)
	assert.EqualValues(t, 1, body.Likes)
	_, body = h.call(t, fan, http.MethodPost, likePath, nil)
	assert.False(t, body.Liked)
	assert.Zero(t, body.Likes)

	status, body = h.call(t, fan, http.MethodPost, fmt.Sprintf("/api/posts/%d/bookmark", etude), nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, body.Bookmarked)
	assert.EqualValues(t, 1, body.Bookmarks)

	_, body = h.call(t, fan, http.MethodGet, "/api/posts/bookmarks", nil)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Posts, 1)
	assert.True(t, body.Posts[0].IsBookmarked)

	status, body = h.call(t, fan, http.MethodDelete, fmt.Sprintf("/api/posts/%d", etude), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "You can only change your own content", body.Error)

	status, _ = h.call(t, author, http.MethodDelete, "/api/posts/999", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = h.call(t, author, http.MethodPost, "/api/posts/999/like", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = h.call(t, author, http.MethodGet, "/api/posts/stats", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, body.Stats)
	assert.Equal(t, posts.Stats{Total: 2, Art: 1, Music: 1}, *body.Stats)

	resp, page := h.get(t, author, "/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, "Sketch")
	assert.Contains(t, page, "Etude")

	status, body = h.call(t, author, http.MethodDelete, fmt.Sprintf("/api/posts/%d", etude), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Post deleted successfully", body.Message)

	_, body = h.call(t, fan, http.MethodGet, "/api/posts/bookmarks", nil)
	assert.Zero(t, body.Count)

	resp, page = h.get(t, fan, "/bookmarks")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, "Nothing saved yet.")
}

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func TestPageSigninForm(t *testing.T) {
	h := newHarness(t)
	_, err := h.accounts.Create(context.Background(), accounts.SignupInput{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)
	c := h.browser(t)

	resp, _ := h.get(t, c, "/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/signin?next=%2Fdashboard", resp.Header.Get("Location"))

	resp, page := h.get(t, c, "/signin?next=/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, "Please sign in to access this page.")
	match := csrfField.FindStringSubmatch(page)
	require.Len(t, match, 2)
	token := match[1]

	form := url.Values{"email": {"ada@example.com"}, "password": {"hunter22"}, "next": {"/dashboard"}}
	resp, err = c.PostForm(h.server.URL+"/signin", form)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	form.Set("csrf_token", token)
	form.Set("password", "wrong-password")
	resp, err = c.PostForm(h.server.URL+"/signin", form)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(raw), "Invalid email or password.")

	form.Set("password", "hunter22")
	form.Set("next", "//evil.example.com")
	resp, err = c.PostForm(h.server.URL+"/signin", form)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp, page = h.get(t, c, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, "Welcome back!")
	assert.Contains(t, page, "ada@example.com")

	resp, _ = h.get(t, c, "/signin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = h.get(t, c, "/logout")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = h.get(t, c, "/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestNotFoundAndHealth(t *testing.T) {
	h := newHarness(t)
	c := h.browser(t)

	status, body := h.call(t, c, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not found", body.Error)

	resp, page := h.get(t, c, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, page, `data-theme="earth"`)

	resp, _ = h.get(t, c, "/static/css/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))

	resp, _ = h.get(t, c, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	h.redis.SetError("down")
	resp, err := http.Get(h.server.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
