package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/target/media-console/internal/adapters/apiclient"
	redisstore "github.com/target/media-console/internal/adapters/redis"
	domainauth "github.com/target/media-console/internal/domain/auth"
	"github.com/target/media-console/internal/ports"
	"github.com/target/media-console/internal/service"
	"golang.org/x/time/rate"
)

// fakeUpstream is a small stand-in for the media-monitoring API.
type fakeUpstream struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	passwords   map[string]string // email -> password
	tokens      map[string]string // email -> token
	identities  map[string]domainauth.Identity
	calls       map[string]int
	lastQuery   map[string]string
	logouts     []string
	statusPolls int
	// meGate, when set, blocks /auth/me until closed.
	meGate chan struct{}
}

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return tok
}

var (
	adminIdentity = domainauth.Identity{
		ID: "u-admin", Email: "admin@example.com", FirstName: "Ada", LastName: "Admin",
		Role: domainauth.RoleAdmin, TenantID: "t1", TenantName: "Acme", IsSuperuser: true,
	}
	viewerIdentity = domainauth.Identity{
		ID: "u-viewer", Email: "viewer@example.com", Role: domainauth.RoleViewer, TenantID: "t1",
	}
	editorIdentity = domainauth.Identity{
		ID: "u-editor", Email: "editor@example.com", Role: domainauth.RoleEditor, TenantID: "t1",
	}
)

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	u := &fakeUpstream{
		t:          t,
		passwords:  map[string]string{},
		tokens:     map[string]string{},
		identities: map[string]domainauth.Identity{},
		calls:      map[string]int{},
		lastQuery:  map[string]string{},
	}
	u.addUser(adminIdentity, "secret", signedToken(t, adminIdentity.ID))
	u.addUser(viewerIdentity, "secret", signedToken(t, viewerIdentity.ID))
	u.addUser(editorIdentity, "secret", signedToken(t, editorIdentity.ID))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/token", u.handleToken)
	mux.HandleFunc("GET /api/v1/auth/me", u.handleMe)
	mux.HandleFunc("POST /api/v1/auth/logout", u.handleLogout)
	mux.HandleFunc("POST /api/v1/auth/signup", u.handleSignup)
	mux.HandleFunc("GET /api/v1/auth/profile", u.handleProfile)
	mux.HandleFunc("PATCH /api/v1/auth/profile", u.handleProfile)
	mux.HandleFunc("POST /api/v1/auth/change-password", u.handleChangePassword)
	mux.HandleFunc("POST /api/v1/users/{id}/impersonate", u.handleImpersonate)
	mux.HandleFunc("GET /api/v1/{collection}/", u.handleList)
	mux.HandleFunc("POST /api/v1/{collection}/", u.handleCreate)
	mux.HandleFunc("POST /api/v1/quick-search/execute-async", u.handleQuickStart)
	mux.HandleFunc("GET /api/v1/quick-search/status/{id}", u.handleQuickStatus)
	mux.HandleFunc("GET /api/v1/public/{name}", u.handlePublic)

	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func (u *fakeUpstream) addUser(id domainauth.Identity, password, token string) {
	u.passwords[id.Email] = password
	u.tokens[id.Email] = token
	u.identities[token] = id
}

func (u *fakeUpstream) tokenFor(email string) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens[email]
}

func (u *fakeUpstream) count(key string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[key]
}

func (u *fakeUpstream) record(key string) {
	u.mu.Lock()
	u.calls[key]++
	u.mu.Unlock()
}

func (u *fakeUpstream) identity(r *http.Request) (domainauth.Identity, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	u.mu.Lock()
	defer u.mu.Unlock()
	id, ok := u.identities[token]
	return id, ok
}

func writeUpstream(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (u *fakeUpstream) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeUpstream(w, http.StatusBadRequest, `{"detail":"bad form"}`)
		return
	}
	email := r.PostForm.Get("username")
	u.mu.Lock()
	pw, ok := u.passwords[email]
	token := u.tokens[email]
	u.mu.Unlock()
	if !ok || pw != r.PostForm.Get("password") {
		writeUpstream(w, http.StatusUnauthorized, `{"detail":"Incorrect email or password"}`)
		return
	}
	writeUpstream(w, http.StatusOK, fmt.Sprintf(`{"access_token":%q,"token_type":"bearer"}`, token))
}

func (u *fakeUpstream) handleMe(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	gate := u.meGate
	u.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	u.record("me")
	id, ok := u.identity(r)
	if !ok {
		writeUpstream(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
		return
	}
	_ = json.NewEncoder(w).Encode(id)
}

func (u *fakeUpstream) handleLogout(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.logouts = append(u.logouts, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	u.mu.Unlock()
	writeUpstream(w, http.StatusOK, `{"status":"ok"}`)
}

func (u *fakeUpstream) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		TenantName string `json:"tenant_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeUpstream(w, http.StatusBadRequest, `{"detail":"bad body"}`)
		return
	}
	u.mu.Lock()
	_, exists := u.passwords[in.Email]
	u.mu.Unlock()
	if exists {
		writeUpstream(w, http.StatusBadRequest, `{"detail":"Email already registered"}`)
		return
	}
	id := domainauth.Identity{ID: "u-" + in.TenantName, Email: in.Email, Role: domainauth.RoleAdmin, TenantID: "t-" + in.TenantName, TenantName: in.TenantName}
	token := signedToken(u.t, id.ID)
	u.mu.Lock()
	u.addUser(id, in.Password, token)
	u.mu.Unlock()
	writeUpstream(w, http.StatusCreated, fmt.Sprintf(`{"access_token":%q,"token_type":"bearer"}`, token))
}

func (u *fakeUpstream) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := u.identity(r)
	if !ok {
		writeUpstream(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
		return
	}
	if r.Method == http.MethodPatch {
		var patch struct {
			FirstName string `json:"first_name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&patch)
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		u.mu.Lock()
		id.FirstName = patch.FirstName
		u.identities[token] = id
		u.mu.Unlock()
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id.ID, "email": id.Email, "first_name": id.FirstName})
}

func (u *fakeUpstream) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := u.identity(r)
	if !ok {
		writeUpstream(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
		return
	}
	var in struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.passwords[id.Email] != in.Current {
		writeUpstream(w, http.StatusBadRequest, `{"detail":"Current password is incorrect"}`)
		return
	}
	u.passwords[id.Email] = in.New
	writeUpstream(w, http.StatusOK, `{"status":"ok"}`)
}

func (u *fakeUpstream) handleImpersonate(w http.ResponseWriter, r *http.Request) {
	caller, ok := u.identity(r)
	if !ok || caller.Role != domainauth.RoleAdmin {
		writeUpstream(w, http.StatusForbidden, `{"detail":"Not enough permissions"}`)
		return
	}
	target := r.PathValue("id")
	u.mu.Lock()
	defer u.mu.Unlock()
	for token, id := range u.identities {
		if id.ID == target {
			body, _ := json.Marshal(map[string]any{
				"access_token": token,
				"user":         id.Summary(),
			})
			writeUpstream(w, http.StatusOK, string(body))
			return
		}
	}
	writeUpstream(w, http.StatusNotFound, `{"detail":"User not found"}`)
}

func (u *fakeUpstream) handleList(w http.ResponseWriter, r *http.Request) {
	if _, ok := u.identity(r); !ok {
		writeUpstream(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
		return
	}
	name := r.PathValue("collection")
	u.record("list:" + name)
	u.mu.Lock()
	u.lastQuery[name] = r.URL.RawQuery
	u.mu.Unlock()

	if q := r.URL.Query(); q.Has("page") {
		writeUpstream(w, http.StatusOK, fmt.Sprintf(`{"items":[{"id":"r1"}],"total":41,"page":%s,"page_size":%s}`,
			q.Get("page"), q.Get("page_size")))
		return
	}
	writeUpstream(w, http.StatusOK, `[{"id":"b1","name":"Acme"},{"id":"b2","name":"Globex"}]`)
}

func (u *fakeUpstream) handleCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := u.identity(r); !ok {
		writeUpstream(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
		return
	}
	u.record("create:" + r.PathValue("collection"))
	body, _ := io.ReadAll(r.Body)
	var obj map[string]any
	_ = json.Unmarshal(body, &obj)
	obj["id"] = "new-1"
	out, _ := json.Marshal(obj)
	writeUpstream(w, http.StatusCreated, string(out))
}

func (u *fakeUpstream) handleQuickStart(w http.ResponseWriter, r *http.Request) {
	if _, ok := u.identity(r); !ok {
		writeUpstream(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
		return
	}
	writeUpstream(w, http.StatusAccepted, `{"task_id":"task-1","status":"pending"}`)
}

func (u *fakeUpstream) handleQuickStatus(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.statusPolls++
	polls := u.statusPolls
	u.mu.Unlock()
	if polls < 3 {
		writeUpstream(w, http.StatusOK, `{"task_id":"task-1","status":"running","progress":0.5}`)
		return
	}
	writeUpstream(w, http.StatusOK, `{"task_id":"task-1","status":"completed","progress":1,"result":{"mentions":7}}`)
}

func (u *fakeUpstream) handlePublic(w http.ResponseWriter, r *http.Request) {
	writeUpstream(w, http.StatusOK, fmt.Sprintf(`{"section":%q}`, r.PathValue("name")))
}

// consoleHarness runs the full console router against fakeUpstream, with tokens in miniredis.
type consoleHarness struct {
	t        *testing.T
	upstream *fakeUpstream
	redis    *miniredis.Miniredis
	tokens   *redisstore.TokenStore
	registry *service.Registry
	server   *httptest.Server
	client   *http.Client
}

type harnessOptions struct {
	limiter    *SessionLimiter
	verifyWait time.Duration
}

func newConsoleHarness(t *testing.T, opts ...func(*harnessOptions)) *consoleHarness {
	t.Helper()
	o := harnessOptions{
		limiter:    NewSessionLimiter(rate.Inf, 1, time.Minute),
		verifyWait: 2 * time.Second,
	}
	for _, fn := range opts {
		fn(&o)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	upstream := newFakeUpstream(t)
	api, err := apiclient.New(apiclient.Config{BaseURL: upstream.server.URL, Timeout: 5 * time.Second, Logger: logger})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	tokens := redisstore.NewTokenStore(rdb, redisstore.TokenStoreOptions{Prefix: "console:"})

	resources := service.NewResourceService(service.ResourceServiceOptions{API: api, CacheTTL: time.Minute, Logger: logger})
	registry := service.NewRegistry(service.RegistryOptions{
		IdleTTL: time.Minute,
		NewStore: func(sid string, reloader ports.Reloader) *service.SessionStore {
			return service.NewSessionStore(service.SessionStoreOptions{
				Tokens:   tokens.ForSession(sid),
				API:      api,
				Reloader: reloader,
				Logger:   logger,
			})
		},
		Tokens:   tokens.ForSession,
		Flushers: []func(string){resources.FlushSession},
		Logger:   logger,
	})

	router := NewRouter(RouterServices{
		Sessions:    registry,
		Accounts:    service.NewAccountService(service.AccountServiceOptions{API: api, Logger: logger}),
		Resources:   resources,
		QuickSearch: service.NewQuickSearchService(service.QuickSearchServiceOptions{API: api, Interval: 10 * time.Millisecond, Timeout: 5 * time.Second, Logger: logger}),
		Overview:    service.NewOverviewService(service.OverviewServiceOptions{API: api, Logger: logger}),
		Limiter:     o.limiter,
		Session:     SessionSettings{CookieName: DefaultSessionCookieName, VerifyWait: o.verifyWait},
		Paths:       GuardPaths{Login: "/login", Landing: "/dashboard"},
		Logger:      logger,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &consoleHarness{
		t:        t,
		upstream: upstream,
		redis:    mr,
		tokens:   tokens,
		registry: registry,
		server:   srv,
		client:   &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

// do sends a JSON request through the browser-like client and decodes a JSON response.
func (h *consoleHarness) do(method, path string, body any) (*http.Response, map[string]any) {
	h.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.server.URL+path, rdr)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	var out map[string]any
	if len(bytes.TrimSpace(raw)) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func (h *consoleHarness) login(email string) {
	h.t.Helper()
	resp, body := h.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": "secret"})
	require.Equal(h.t, http.StatusOK, resp.StatusCode, "login body: %v", body)
}

// sid returns the console session id held by the client's cookie jar.
func (h *consoleHarness) sid() string {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL, nil)
	require.NoError(h.t, err)
	for _, c := range h.client.Jar.Cookies(req.URL) {
		if c.Name == DefaultSessionCookieName {
			return c.Value
		}
	}
	return ""
}
