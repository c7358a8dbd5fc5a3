package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	authsync "github.com/goliatone/go-authsync"
	"github.com/goliatone/go-authsync/provider/local"
	"github.com/goliatone/go-authsync/repository"
	"github.com/goliatone/go-authsync/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	t        *testing.T
	dir      *local.Directory
	profiles *authsync.ProfileStore
	tokens   *web.SessionTokens
	registry *web.Registry
	server   *web.Server
	cookie   *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.Migrate(ctx, db))

	h := &harness{
		t: t,
		dir: local.NewDirectory(repository.NewAccountsRepository(db)).
			WithLogger(authsync.NopLogger()).
			WithHashCost(bcrypt.MinCost),
		profiles: authsync.NewProfileStore(repository.NewMemoryStore()).WithLogger(authsync.NopLogger()),
		tokens:   web.NewSessionTokens([]byte("test-signing-key"), "authsync-test", time.Hour),
	}
	h.boot()
	return h
}

// boot starts a fresh registry and server over the same accounts and
// profiles, like a process restart.
func (h *harness) boot() {
	h.t.Helper()

	if h.registry != nil {
		h.registry.Close()
	}

	h.registry = web.NewRegistry(func(context.Context) (authsync.IdentityProvider, error) {
		return local.NewClient(h.dir), nil
	}, h.profiles).WithLogger(authsync.NopLogger())
	h.t.Cleanup(h.registry.Close)

	controller := web.NewController(h.registry, h.tokens,
		web.WithControllerLogger(authsync.NopLogger()),
		web.WithReadyTimeout(2*time.Second),
	)

	server, err := web.NewServer(controller)
	require.NoError(h.t, err)
	h.server = server
}

func (h *harness) do(method, target string, form url.Values) (*http.Response, string) {
	h.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}

	resp, err := h.server.App().Test(req, -1)
	require.NoError(h.t, err)

	for _, c := range resp.Cookies() {
		if c.Name == web.DefaultCookieName {
			h.cookie = c
		}
	}

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	_ = resp.Body.Close()

	return resp, string(raw)
}

func registrationForm(email string) url.Values {
	return url.Values{
		"first_name":       {"A"},
		"last_name":        {"B"},
		"email":            {email},
		"phone":            {"+1 415 555 2671"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
		"role":             {"individual"},
	}
}

func TestDashboardRequiresAuth(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Sign in")
	require.NotNil(t, h.cookie)
	assert.Equal(t, 1, h.registry.Len())

	resp, _ = h.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	assert.Equal(t, 1, h.registry.Len(), "cookie keeps the same session")
}

func TestRegisterLoginLogout(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.do(http.MethodPost, "/register", registrationForm("a@b.com"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp, body := h.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "a@b.com")
	assert.Contains(t, body, "administrator access", "individuals are shown as admins")

	resp, body = h.do(http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		State    authsync.AuthViewState `json:"state"`
		Decision string                 `json:"decision"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "render", payload.Decision)
	assert.True(t, payload.State.IsAuthenticated)
	assert.Equal(t, "a@b.com", payload.State.User.Email)

	resp, _ = h.do(http.MethodGet, "/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = h.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "signed in users skip the login page")
}

func TestRegisterAsTeamMemberKeepsProfile(t *testing.T) {
	h := newHarness(t)

	// the session's bridge is already running when the form is posted
	resp, _ := h.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	form := registrationForm("m@b.com")
	form.Set("role", "team_member")
	form.Set("phone", "555")

	resp, _ = h.do(http.MethodPost, "/register", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := h.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "team_member")
	assert.NotContains(t, body, "administrator access")

	account, err := h.dir.Lookup(context.Background(), "m@b.com")
	require.NoError(t, err)

	record, err := h.profiles.Get(context.Background(), account.ID.String())
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, authsync.RoleTeamMember, record.Role)
	assert.Equal(t, authsync.ProfileInfo{FirstName: "A", LastName: "B", Phone: "555"}, record.Profile)
}

func TestLoginRejections(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(http.MethodPost, "/login", url.Values{"email": {"nope"}, "password": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Email is invalid")
	assert.Contains(t, body, "Password is required")

	resp, body = h.do(http.MethodPost, "/login", url.Values{"email": {"ghost@b.com"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "No account found with this email")
}

func TestRegistrationRejections(t *testing.T) {
	h := newHarness(t)

	form := registrationForm("a@b.com")
	form.Set("confirm_password", "other1")
	form.Set("first_name", "")

	resp, body := h.do(http.MethodPost, "/register", form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Passwords do not match")
	assert.Contains(t, body, "First name is required")

	resp, _ = h.do(http.MethodPost, "/register", registrationForm("a@b.com"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	h.do(http.MethodGet, "/logout", nil)

	resp, body = h.do(http.MethodPost, "/register", registrationForm("a@b.com"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "An account with this email already exists")
}

func TestSessionResumesAfterRestart(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.do(http.MethodPost, "/register", registrationForm("a@b.com"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	h.boot()
	assert.Equal(t, 0, h.registry.Len())

	resp, body := h.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "a@b.com")
}

func TestTamperedCookieStartsFreshSession(t *testing.T) {
	h := newHarness(t)

	h.cookie = &http.Cookie{Name: web.DefaultCookieName, Value: "not-a-token"}
	resp, _ := h.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEqual(t, "not-a-token", h.cookie.Value)
}

func TestRegistrySweep(t *testing.T) {
	h := newHarness(t)

	now := time.Now()
	h.registry.WithClock(func() time.Time { return now })

	_, err := h.registry.Open(context.Background(), "", "")
	require.NoError(t, err)
	_, err = h.registry.Open(context.Background(), "keep", "")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, ok := h.registry.Get("keep")
	require.True(t, ok)

	assert.Equal(t, 1, h.registry.Sweep(30*time.Minute))
	assert.Equal(t, 1, h.registry.Len())
}

func TestSessionTokens(t *testing.T) {
	tokens := web.NewSessionTokens([]byte("k"), "iss", time.Hour)

	raw, err := tokens.Issue("sid-1", "uid-1")
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SID)
	assert.Equal(t, "uid-1", claims.UID)

	other := web.NewSessionTokens([]byte("other"), "iss", time.Hour)
	_, err = other.Parse(raw)
	assert.True(t, authsync.HasTextCode(err, "SESSION_TOKEN_MALFORMED"))

	expired := web.NewSessionTokens([]byte("k"), "iss", time.Nanosecond)
	raw, err = expired.Issue("sid-2", "")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = expired.Parse(raw)
	assert.ErrorIs(t, err, web.ErrSessionTokenExpired)
}
