package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/media-console/internal/domain/model"
	"github.com/target/media-console/internal/ports"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{BaseURL: "not a url"})
	require.Error(t, err)

	_, err = New(Config{BaseURL: "http://api.local", ErrorMessagePaths: []string{"detail[0"}})
	require.Error(t, err)

	c, err := New(Config{BaseURL: "http://api.local/"})
	require.NoError(t, err)
	assert.Equal(t, "http://api.local", c.BaseURL())
}

func TestPasswordToken(t *testing.T) {
	t.Run("form encoded password grant", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/auth/token", r.URL.Path)
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "password", r.PostForm.Get("grant_type"))
			assert.Equal(t, "user@example.com", r.PostForm.Get("username"))
			assert.Equal(t, "secret", r.PostForm.Get("password"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"tok1","token_type":"bearer"}`)
		}))

		tok, err := c.PasswordToken(context.Background(), "user@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "tok1", tok)
	})

	t.Run("server message surfaces", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect email or password"}`)
		}))

		_, err := c.PasswordToken(context.Background(), "user@example.com", "bad")
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
		assert.Equal(t, "Incorrect email or password", MessageOf(err))
	})
}

func TestMe_SendsBearerToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/me", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer tok1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"id":"u1","email":"user@example.com","role":"editor","tenant_id":"t1","is_superuser":false}`)
	}))

	id, err := c.Me(context.Background(), "tok1")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.ID)
	assert.Equal(t, "editor", string(id.Role))

	_, err = c.Me(context.Background(), "stale")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestSignup(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/signup", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Acme", body["tenant_name"])
		if body["email"] == "taken@example.com" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail":[{"loc":["body","email"],"msg":"Email already registered"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"tok-signup"}`)
	}))

	tok, err := c.Signup(context.Background(), ports.SignupInput{Email: "new@example.com", Password: "pw", TenantName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "tok-signup", tok)

	_, err = c.Signup(context.Background(), ports.SignupInput{Email: "taken@example.com", Password: "pw", TenantName: "Acme"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
	assert.Equal(t, "Email already registered", MessageOf(err))
}

func TestList_SkipLimitCollection(t *testing.T) {
	var got url.Values
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/brands/", r.URL.Path)
		got = r.URL.Query()
		_, _ = io.WriteString(w, `[{"id":"b1"},{"id":"b2"}]`)
	}))

	col, _ := model.LookupCollection("brands")
	res, err := c.List(context.Background(), "tok", col, model.ListQuery{
		Skip:    40,
		Limit:   20,
		Filters: url.Values{"q": {"acme"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "40", got.Get("skip"))
	assert.Equal(t, "20", got.Get("limit"))
	assert.Equal(t, "acme", got.Get("q"))
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 42, res.Total)
	assert.Equal(t, 40, res.Skip)
}

func TestList_PageCollectionTranslates(t *testing.T) {
	var got url.Values
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reports/", r.URL.Path)
		got = r.URL.Query()
		_, _ = io.WriteString(w, `{"items":[{"id":"r1"}],"total":31,"page":3,"page_size":10}`)
	}))

	col, _ := model.LookupCollection("reports")
	res, err := c.List(context.Background(), "tok", col, model.ListQuery{Skip: 25, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, "3", got.Get("page"))
	assert.Equal(t, "10", got.Get("page_size"))
	assert.Empty(t, got.Get("skip"))
	assert.Equal(t, 31, res.Total)
	assert.Equal(t, 20, res.Skip)
	assert.Equal(t, 10, res.Limit)
}

func TestCRUD_Item(t *testing.T) {
	var methods []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			if r.URL.Path == "/api/v1/feeds/missing" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"detail":"Feed not found"}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":"f1"}`)
		default:
			body, _ := io.ReadAll(r.Body)
			_, _ = w.Write(body)
		}
	}))

	col, _ := model.LookupCollection("feeds")
	ctx := context.Background()

	created, err := c.Create(ctx, "tok", col, json.RawMessage(`{"name":"rss"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"rss"}`, string(created))

	item, err := c.Get(ctx, "tok", col, "f1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"f1"}`, string(item))

	_, err = c.Update(ctx, "tok", col, "f1", json.RawMessage(`{"name":"atom"}`))
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, "tok", col, "f1"))

	_, err = c.Get(ctx, "tok", col, "missing")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Feed not found", MessageOf(err))

	assert.Equal(t, []string{
		"POST /api/v1/feeds/",
		"GET /api/v1/feeds/f1",
		"PATCH /api/v1/feeds/f1",
		"DELETE /api/v1/feeds/f1",
		"GET /api/v1/feeds/missing",
	}, methods)
}

func TestQuickSearch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/quick-search/execute-async":
			_, _ = io.WriteString(w, `{"task_id":"task-1"}`)
		case "/api/v1/quick-search/status/task-1":
			_, _ = io.WriteString(w, `{"status":"running","progress":0.5}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	id, err := c.StartQuickSearch(context.Background(), "tok", json.RawMessage(`{"query":"acme"}`))
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)

	st, err := c.QuickSearchStatus(context.Background(), "tok", id)
	require.NoError(t, err)
	assert.Equal(t, model.TaskRunning, st.Status)
	assert.Equal(t, "task-1", st.TaskID)
	assert.InDelta(t, 0.5, st.Progress, 0.0001)
}

func TestImpersonateAndPublic(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/users/u2/impersonate":
			assert.Equal(t, "Bearer admin-tok", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"access_token":"imp-tok","user":{"id":"u2","email":"b@example.com","role":"viewer"}}`)
		case "/api/v1/public/overview":
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"mentions":12}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	grant, err := c.Impersonate(context.Background(), "admin-tok", "u2")
	require.NoError(t, err)
	assert.Equal(t, "imp-tok", grant.AccessToken)
	assert.Equal(t, "viewer", grant.User.Role)

	body, err := c.Public(context.Background(), "overview")
	require.NoError(t, err)
	assert.JSONEq(t, `{"mentions":12}`, string(body))
}

func TestMessageExtractor(t *testing.T) {
	m, err := newMessageExtractor(nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail":"nope"}`, "nope"},
		{"validation list", `{"detail":[{"msg":"field required"}]}`, "field required"},
		{"message key", `{"message":"bad request"}`, "bad request"},
		{"nested error", `{"error":{"message":"quota exceeded"}}`, "quota exceeded"},
		{"no known key", `{"foo":"bar"}`, ""},
		{"plain text", `upstream unavailable`, "upstream unavailable"},
		{"html page", `<html>502</html>`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.extract([]byte(tt.body)))
		})
	}
}
