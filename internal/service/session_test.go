package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/media-console/internal/adapters/apiclient"
	domainauth "github.com/target/media-console/internal/domain/auth"
	apperrors "github.com/target/media-console/internal/errors"
	"github.com/target/media-console/internal/mocks"
	mockauth "github.com/target/media-console/internal/mocks/auth"
	"go.uber.org/mock/gomock"
)

var (
	adminIdentity = domainauth.Identity{
		ID: "admin-1", Email: "admin@example.com", Role: domainauth.RoleAdmin,
		TenantID: "t1", IsSuperuser: true,
	}
	viewerIdentity = domainauth.Identity{
		ID: "u2", Email: "viewer@example.com", FirstName: "Vera", Role: domainauth.RoleViewer, TenantID: "t1",
	}
)

type sessionFixture struct {
	store    *SessionStore
	tokens   *mockauth.MemoryTokenStore
	api      *mockauth.FakeAuthAPI
	reloader *mockauth.RecordingReloader
}

func newSessionFixture(t *testing.T, seed map[string]string) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		tokens:   mockauth.NewMemoryTokenStore(seed),
		api:      mockauth.NewFakeAuthAPI(),
		reloader: &mockauth.RecordingReloader{},
	}
	f.store = NewSessionStore(SessionStoreOptions{
		Tokens:   f.tokens,
		API:      f.api,
		Reloader: f.reloader,
	})
	return f
}

func jwtFor(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: sub}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestSessionStore_InitialState(t *testing.T) {
	f := newSessionFixture(t, nil)
	snap := f.store.Snapshot()

	assert.Equal(t, domainauth.StateInitializing, snap.State)
	assert.True(t, snap.Loading)
	assert.False(t, snap.IsAuthenticated())
	select {
	case <-f.store.Ready():
		t.Fatal("ready closed before init")
	default:
	}
}

func TestSessionStore_Init_NoToken(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.store.Init(context.Background())

	snap := f.store.Snapshot()
	assert.Equal(t, domainauth.StateAnonymous, snap.State)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Identity)
	assert.Empty(t, f.api.MeCalls)
	<-f.store.Ready()
}

func TestSessionStore_Init_VerificationRoundTrip(t *testing.T) {
	t.Run("valid token authenticates", func(t *testing.T) {
		f := newSessionFixture(t, map[string]string{domainauth.KeyAccessToken: "tok1"})
		f.api.AddToken("tok1", viewerIdentity)

		f.store.Init(context.Background())

		snap := f.store.Snapshot()
		assert.Equal(t, domainauth.StateAuthenticated, snap.State)
		assert.True(t, snap.IsAuthenticated())
		require.NotNil(t, snap.Identity)
		assert.Equal(t, "u2", snap.Identity.ID)
		assert.Equal(t, "tok1", f.store.Token())
		assert.False(t, snap.Impersonating)
	})

	t.Run("rejected token clears both keys", func(t *testing.T) {
		f := newSessionFixture(t, map[string]string{
			domainauth.KeyAccessToken:   "stale",
			domainauth.KeyOriginalToken: "orig",
		})

		f.store.Init(context.Background())

		snap := f.store.Snapshot()
		assert.Equal(t, domainauth.StateAnonymous, snap.State)
		assert.False(t, snap.Loading)
		assert.Nil(t, snap.Identity)
		assert.False(t, f.tokens.Has(domainauth.KeyAccessToken))
		assert.False(t, f.tokens.Has(domainauth.KeyOriginalToken))
		assert.Empty(t, f.store.Token())
	})

	t.Run("storage read failure is anonymous", func(t *testing.T) {
		f := newSessionFixture(t, map[string]string{domainauth.KeyAccessToken: "tok1"})
		f.tokens.GetErr = errors.New("redis down")

		f.store.Init(context.Background())

		assert.Equal(t, domainauth.StateAnonymous, f.store.Snapshot().State)
	})
}

func TestSessionStore_Init_ResumesImpersonation(t *testing.T) {
	original := jwtFor(t, "admin-1")
	f := newSessionFixture(t, map[string]string{
		domainauth.KeyAccessToken:   "imp-tok",
		domainauth.KeyOriginalToken: original,
	})
	f.api.AddToken("imp-tok", viewerIdentity)

	f.store.Init(context.Background())

	snap := f.store.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.True(t, snap.Impersonating)
	require.NotNil(t, snap.Impersonation)
	assert.Equal(t, viewerIdentity.Summary(), snap.Impersonation.User)
	assert.Equal(t, "admin-1", snap.Impersonation.InitiatedBy)
	assert.Equal(t, original, snap.Impersonation.OriginalToken)
}

func TestSessionStore_StartReady(t *testing.T) {
	f := newSessionFixture(t, map[string]string{domainauth.KeyAccessToken: "tok1"})
	release := make(chan struct{})
	f.api.MeFunc = func(context.Context, string) (domainauth.Identity, error) {
		<-release
		return viewerIdentity, nil
	}

	f.store.Start(context.Background())
	f.store.Start(context.Background())

	assert.Eventually(t, func() bool {
		return f.store.Snapshot().State == domainauth.StateVerifying
	}, time.Second, 5*time.Millisecond)
	assert.True(t, f.store.Snapshot().Loading)

	close(release)
	select {
	case <-f.store.Ready():
	case <-time.After(time.Second):
		t.Fatal("store never became ready")
	}
	assert.True(t, f.store.Snapshot().IsAuthenticated())
	assert.Len(t, f.api.MeCalls, 1)
}

func TestSessionStore_Login(t *testing.T) {
	t.Run("success persists token", func(t *testing.T) {
		f := newSessionFixture(t, map[string]string{domainauth.KeyOriginalToken: "leftover"})
		f.api.AddUser("user@example.com", "secret", "tok1", viewerIdentity)

		require.NoError(t, f.store.Login(context.Background(), " user@example.com ", "secret"))

		snap := f.store.Snapshot()
		assert.True(t, snap.IsAuthenticated())
		assert.Equal(t, "tok1", f.tokens.Value(domainauth.KeyAccessToken))
		assert.False(t, f.tokens.Has(domainauth.KeyOriginalToken))
		<-f.store.Ready()
	})

	t.Run("bad credentials", func(t *testing.T) {
		f := newSessionFixture(t, nil)

		err := f.store.Login(context.Background(), "user@example.com", "wrong")
		require.Error(t, err)
		assert.True(t, apperrors.IsAuthentication(err))
		assert.Equal(t, apperrors.DefaultAuthenticationMessage, err.Error())
		assert.False(t, f.tokens.Has(domainauth.KeyAccessToken))
	})

	t.Run("server message surfaces", func(t *testing.T) {
		f := newSessionFixture(t, nil)
		f.api.PasswordTokenFunc = func(context.Context, string, string) (string, error) {
			return "", &apiclient.APIError{Status: http.StatusUnauthorized, Message: "Incorrect email or password"}
		}

		err := f.store.Login(context.Background(), "user@example.com", "wrong")
		require.Error(t, err)
		assert.Equal(t, "Incorrect email or password", err.Error())
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newSessionFixture(t, nil)
		err := f.store.Login(context.Background(), "", "secret")
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "email", apperrors.GetField(err))
	})

	t.Run("identity fetch failure persists nothing", func(t *testing.T) {
		f := newSessionFixture(t, nil)
		f.api.PasswordTokenFunc = func(context.Context, string, string) (string, error) { return "tok1", nil }

		err := f.store.Login(context.Background(), "user@example.com", "secret")
		require.Error(t, err)
		assert.True(t, apperrors.IsAuthentication(err))
		assert.False(t, f.tokens.Has(domainauth.KeyAccessToken))
		assert.False(t, f.store.Snapshot().IsAuthenticated())
	})
}

func TestSessionStore_Signup(t *testing.T) {
	f := newSessionFixture(t, nil)

	require.NoError(t, f.store.Signup(context.Background(), "new@example.com", "pw", "Acme"))

	snap := f.store.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Equal(t, domainauth.RoleAdmin, snap.Identity.Role)
	assert.Equal(t, "Acme", snap.Identity.TenantName)
	assert.Equal(t, "signup-new@example.com", f.tokens.Value(domainauth.KeyAccessToken))

	err := f.store.Signup(context.Background(), "new@example.com", "pw", "")
	assert.Equal(t, "tenant_name", apperrors.GetField(err))
}

func TestSessionStore_Logout_ClearsEvenWhenServerFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAuthAPI(ctrl)
	tokens := mockauth.NewMemoryTokenStore(map[string]string{
		domainauth.KeyAccessToken:   "imp-tok",
		domainauth.KeyOriginalToken: "admin-tok",
	})
	store := NewSessionStore(SessionStoreOptions{Tokens: tokens, API: api})

	api.EXPECT().Me(gomock.Any(), "imp-tok").Return(viewerIdentity, nil)
	api.EXPECT().Logout(gomock.Any(), "imp-tok").Return(errors.New("502 bad gateway"))

	store.Init(context.Background())
	require.True(t, store.Snapshot().Impersonating)

	require.NoError(t, store.Logout(context.Background()))

	snap := store.Snapshot()
	assert.False(t, tokens.Has(domainauth.KeyAccessToken))
	assert.False(t, tokens.Has(domainauth.KeyOriginalToken))
	assert.Nil(t, snap.Identity)
	assert.False(t, snap.Impersonating)
	assert.Nil(t, snap.Impersonation)
	assert.Equal(t, domainauth.StateAnonymous, snap.State)
	assert.Empty(t, store.Token())
}

func TestSessionStore_Logout_Anonymous(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.store.Init(context.Background())

	require.NoError(t, f.store.Logout(context.Background()))
	assert.Empty(t, f.api.LogoutCalls)
}

func TestSessionStore_ImpersonationRestore(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.api.AddUser("admin@example.com", "pw", "tok0", adminIdentity)
	ctx := context.Background()

	require.NoError(t, f.store.Login(ctx, "admin@example.com", "pw"))
	require.NoError(t, f.store.StartImpersonation(ctx, "tok1", viewerIdentity.Summary(), adminIdentity.ID))

	assert.Equal(t, "tok1", f.tokens.Value(domainauth.KeyAccessToken))
	assert.Equal(t, "tok0", f.tokens.Value(domainauth.KeyOriginalToken))
	snap := f.store.Snapshot()
	assert.True(t, snap.Impersonating)
	require.NotNil(t, snap.Impersonation)
	assert.Equal(t, "admin-1", snap.Impersonation.InitiatedBy)
	assert.Equal(t, "u2", snap.Impersonation.User.ID)
	assert.Equal(t, "tok1", f.store.Token())
	assert.Equal(t, 1, f.reloader.Count())

	require.NoError(t, f.store.EndImpersonation(ctx))

	assert.Equal(t, "tok0", f.tokens.Value(domainauth.KeyAccessToken))
	assert.False(t, f.tokens.Has(domainauth.KeyOriginalToken))
	snap = f.store.Snapshot()
	assert.False(t, snap.Impersonating)
	assert.Nil(t, snap.Impersonation)
	assert.Equal(t, "tok0", f.store.Token())
	assert.Equal(t, 2, f.reloader.Count())
}

func TestSessionStore_ImpersonationAcrossReload(t *testing.T) {
	tokens := mockauth.NewMemoryTokenStore(nil)
	api := mockauth.NewFakeAuthAPI()
	api.AddUser("admin@example.com", "pw", "tok0", adminIdentity)
	api.AddToken("tok1", viewerIdentity)
	ctx := context.Background()

	// Each reload builds a fresh store from the same durable storage.
	var current *SessionStore
	var build func() *SessionStore
	reloader := reloadFunc(func(ctx context.Context) {
		current = build()
		current.Init(ctx)
	})
	build = func() *SessionStore {
		return NewSessionStore(SessionStoreOptions{Tokens: tokens, API: api, Reloader: reloader})
	}
	current = build()
	current.Init(ctx)

	require.NoError(t, current.Login(ctx, "admin@example.com", "pw"))
	require.NoError(t, current.StartImpersonation(ctx, "tok1", viewerIdentity.Summary(), "admin-1"))

	snap := current.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "u2", snap.Identity.ID)
	assert.True(t, snap.Impersonating)

	require.NoError(t, current.EndImpersonation(ctx))

	snap = current.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "admin-1", snap.Identity.ID)
	assert.False(t, snap.Impersonating)
}

type reloadFunc func(ctx context.Context)

func (f reloadFunc) Reload(ctx context.Context) { f(ctx) }

func TestSessionStore_StartImpersonation_Nested(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.api.AddUser("admin@example.com", "pw", "tok0", adminIdentity)
	ctx := context.Background()

	require.NoError(t, f.store.Login(ctx, "admin@example.com", "pw"))
	require.NoError(t, f.store.StartImpersonation(ctx, "tok1", viewerIdentity.Summary(), "admin-1"))
	require.NoError(t, f.store.StartImpersonation(ctx, "tok2", domainauth.IdentitySummary{ID: "u3"}, "admin-1"))

	assert.Equal(t, "tok2", f.tokens.Value(domainauth.KeyAccessToken))
	assert.Equal(t, "tok0", f.tokens.Value(domainauth.KeyOriginalToken))
}

func TestSessionStore_StartImpersonation_Preconditions(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.store.Init(context.Background())

	err := f.store.StartImpersonation(context.Background(), "tok1", viewerIdentity.Summary(), "admin-1")
	assert.True(t, apperrors.IsUnauthenticated(err))

	err = f.store.StartImpersonation(context.Background(), "", viewerIdentity.Summary(), "admin-1")
	assert.True(t, apperrors.IsValidation(err))
	assert.Zero(t, f.reloader.Count())
}

func TestSessionStore_StartImpersonation_PersistFailureKeepsAdmin(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.api.AddUser("admin@example.com", "pw", "tok0", adminIdentity)
	ctx := context.Background()
	require.NoError(t, f.store.Login(ctx, "admin@example.com", "pw"))

	f.tokens.SetErr = errors.New("write failed")
	err := f.store.StartImpersonation(ctx, "tok1", viewerIdentity.Summary(), "admin-1")
	require.Error(t, err)

	assert.Equal(t, "tok0", f.tokens.Value(domainauth.KeyAccessToken))
	assert.False(t, f.store.Snapshot().Impersonating)
	assert.Equal(t, "tok0", f.store.Token())
	assert.Zero(t, f.reloader.Count())
}

func TestSessionStore_EndImpersonation_StorageFallback(t *testing.T) {
	f := newSessionFixture(t, map[string]string{
		domainauth.KeyAccessToken:   "imp-tok",
		domainauth.KeyOriginalToken: "admin-tok",
	})
	f.api.AddToken("imp-tok", viewerIdentity)
	ctx := context.Background()
	f.store.Init(ctx)

	// Forget the in-memory copy so the stored marker is used.
	f.store.mu.Lock()
	f.store.impersonation.OriginalToken = ""
	f.store.mu.Unlock()

	require.NoError(t, f.store.EndImpersonation(ctx))
	assert.Equal(t, "admin-tok", f.tokens.Value(domainauth.KeyAccessToken))
	assert.False(t, f.tokens.Has(domainauth.KeyOriginalToken))
}

func TestSessionStore_EndImpersonation_NoOriginalSignsOut(t *testing.T) {
	f := newSessionFixture(t, map[string]string{domainauth.KeyAccessToken: "tok1"})
	f.api.AddToken("tok1", viewerIdentity)
	ctx := context.Background()
	f.store.Init(ctx)

	require.NoError(t, f.store.EndImpersonation(ctx))

	snap := f.store.Snapshot()
	assert.Nil(t, snap.Identity)
	assert.False(t, snap.Impersonating)
	assert.False(t, f.tokens.Has(domainauth.KeyAccessToken))
	assert.Equal(t, 1, f.reloader.Count())
}

func TestSessionStore_RefreshIdentity(t *testing.T) {
	f := newSessionFixture(t, map[string]string{domainauth.KeyAccessToken: "tok1"})
	f.api.AddToken("tok1", viewerIdentity)
	ctx := context.Background()
	f.store.Init(ctx)

	renamed := viewerIdentity
	renamed.FirstName = "Veronica"
	f.api.AddToken("tok1", renamed)

	require.NoError(t, f.store.RefreshIdentity(ctx))
	assert.Equal(t, "Veronica", f.store.Snapshot().Identity.FirstName)

	require.NoError(t, f.store.Logout(ctx))
	assert.True(t, apperrors.IsUnauthenticated(f.store.RefreshIdentity(ctx)))
}

func TestSessionStore_RefreshIdentityRejectedToken(t *testing.T) {
	f := newSessionFixture(t, map[string]string{
		domainauth.KeyAccessToken:   "tok1",
		domainauth.KeyOriginalToken: "admin-tok",
	})
	f.api.AddToken("tok1", viewerIdentity)
	ctx := context.Background()
	f.store.Init(ctx)
	require.True(t, f.store.Snapshot().IsAuthenticated())

	f.api.MeFunc = func(context.Context, string) (domainauth.Identity, error) {
		return domainauth.Identity{}, &apiclient.APIError{Status: http.StatusUnauthorized, Message: "Could not validate credentials"}
	}

	err := f.store.RefreshIdentity(ctx)
	assert.True(t, apperrors.IsUnauthenticated(err))

	snap := f.store.Snapshot()
	assert.Equal(t, domainauth.StateAnonymous, snap.State)
	assert.Nil(t, snap.Identity)
	assert.False(t, snap.Impersonating)
	assert.Empty(t, f.store.Token())
	assert.False(t, f.tokens.Has(domainauth.KeyAccessToken))
	assert.False(t, f.tokens.Has(domainauth.KeyOriginalToken))
}

func TestSessionStore_RefreshIdentityTransientFailureKeepsSession(t *testing.T) {
	f := newSessionFixture(t, map[string]string{domainauth.KeyAccessToken: "tok1"})
	f.api.AddToken("tok1", viewerIdentity)
	ctx := context.Background()
	f.store.Init(ctx)

	f.api.MeFunc = func(context.Context, string) (domainauth.Identity, error) {
		return domainauth.Identity{}, &apiclient.APIError{Status: http.StatusBadGateway}
	}

	err := f.store.RefreshIdentity(ctx)
	assert.True(t, apperrors.IsUpstream(err))
	assert.True(t, f.store.Snapshot().IsAuthenticated())
	assert.Equal(t, "tok1", f.tokens.Value(domainauth.KeyAccessToken))
}

func TestSessionStore_Subscribe(t *testing.T) {
	f := newSessionFixture(t, map[string]string{domainauth.KeyAccessToken: "tok1"})
	f.api.AddToken("tok1", viewerIdentity)

	var mu sync.Mutex
	var states []domainauth.State
	unsubscribe := f.store.Subscribe(func(s domainauth.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	})

	f.store.Init(context.Background())
	unsubscribe()
	require.NoError(t, f.store.Logout(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domainauth.State{
		domainauth.StateInitializing,
		domainauth.StateVerifying,
		domainauth.StateAuthenticated,
	}, states)
}

func TestSessionStore_SnapshotIsCopy(t *testing.T) {
	f := newSessionFixture(t, map[string]string{domainauth.KeyAccessToken: "tok1"})
	f.api.AddToken("tok1", viewerIdentity)
	f.store.Init(context.Background())

	snap := f.store.Snapshot()
	snap.Identity.Role = domainauth.RoleAdmin

	assert.Equal(t, domainauth.RoleViewer, f.store.Snapshot().Identity.Role)
}

func TestSessionStore_EndToEndLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/auth/token":
			_, _ = io.WriteString(w, `{"access_token":"tok1","token_type":"bearer"}`)
		case "/api/v1/auth/me":
			if r.Header.Get("Authorization") != "Bearer tok1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `{"id":"u1","email":"user@example.com","role":"editor","tenant_id":"t1"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	tokens := mockauth.NewMemoryTokenStore(nil)
	store := NewSessionStore(SessionStoreOptions{Tokens: tokens, API: client})

	require.NoError(t, store.Login(context.Background(), "user@example.com", "secret"))

	snap := store.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	require.NotNil(t, snap.Identity)
	assert.Equal(t, domainauth.RoleEditor, snap.Identity.Role)
	assert.Equal(t, "tok1", tokens.Value(domainauth.KeyAccessToken))
}
