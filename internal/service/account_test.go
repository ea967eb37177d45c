package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/media-console/internal/adapters/apiclient"
	domainauth "github.com/target/media-console/internal/domain/auth"
	"github.com/target/media-console/internal/domain/model"
	apperrors "github.com/target/media-console/internal/errors"
)

// fakeAccountAPI is a function-field double for ports.AccountAPI.
type fakeAccountAPI struct {
	profileFunc        func(ctx context.Context, token string) (json.RawMessage, error)
	updateProfileFunc  func(ctx context.Context, token string, body json.RawMessage) (json.RawMessage, error)
	changePasswordFunc func(ctx context.Context, token, current, next string) error
	impersonateFunc    func(ctx context.Context, token, userID string) (model.ImpersonationGrant, error)
}

func (f *fakeAccountAPI) Profile(ctx context.Context, token string) (json.RawMessage, error) {
	return f.profileFunc(ctx, token)
}

func (f *fakeAccountAPI) UpdateProfile(ctx context.Context, token string, body json.RawMessage) (json.RawMessage, error) {
	return f.updateProfileFunc(ctx, token, body)
}

func (f *fakeAccountAPI) ChangePassword(ctx context.Context, token, current, next string) error {
	return f.changePasswordFunc(ctx, token, current, next)
}

func (f *fakeAccountAPI) Impersonate(ctx context.Context, token, userID string) (model.ImpersonationGrant, error) {
	return f.impersonateFunc(ctx, token, userID)
}

func signedInFixture(t *testing.T, id domainauth.Identity) *sessionFixture {
	t.Helper()
	f := newSessionFixture(t, map[string]string{domainauth.KeyAccessToken: "tok0"})
	f.api.AddToken("tok0", id)
	f.store.Init(context.Background())
	require.True(t, f.store.Snapshot().IsAuthenticated())
	return f
}

func TestAccountService_Profile(t *testing.T) {
	f := signedInFixture(t, viewerIdentity)
	svc := NewAccountService(AccountServiceOptions{API: &fakeAccountAPI{
		profileFunc: func(_ context.Context, token string) (json.RawMessage, error) {
			assert.Equal(t, "tok0", token)
			return json.RawMessage(`{"email":"viewer@example.com"}`), nil
		},
	}})

	out, err := svc.Profile(context.Background(), f.store)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"viewer@example.com"}`, string(out))
}

func TestAccountService_UpdateProfileRefreshesIdentity(t *testing.T) {
	f := signedInFixture(t, viewerIdentity)
	svc := NewAccountService(AccountServiceOptions{API: &fakeAccountAPI{
		updateProfileFunc: func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
			renamed := viewerIdentity
			renamed.LastName = "Updated"
			f.api.AddToken("tok0", renamed)
			return json.RawMessage(`{"last_name":"Updated"}`), nil
		},
	}})

	_, err := svc.UpdateProfile(context.Background(), f.store, json.RawMessage(`{"last_name":"Updated"}`))
	require.NoError(t, err)
	assert.Equal(t, "Updated", f.store.Snapshot().Identity.LastName)
}

func TestAccountService_ChangePassword(t *testing.T) {
	f := signedInFixture(t, viewerIdentity)
	var called bool
	svc := NewAccountService(AccountServiceOptions{API: &fakeAccountAPI{
		changePasswordFunc: func(_ context.Context, _, current, next string) error {
			called = true
			if current != "old-password" {
				return &apiclient.APIError{Status: http.StatusBadRequest, Message: "Current password is incorrect"}
			}
			return nil
		},
	}})
	ctx := context.Background()

	err := svc.ChangePassword(ctx, f.store, "old-password", "short")
	assert.Equal(t, "new_password", apperrors.GetField(err))
	assert.False(t, called)

	require.NoError(t, svc.ChangePassword(ctx, f.store, "old-password", "new-password-1"))

	err = svc.ChangePassword(ctx, f.store, "wrong", "new-password-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "Current password is incorrect")
}

func TestAccountService_Impersonate(t *testing.T) {
	f := signedInFixture(t, adminIdentity)
	svc := NewAccountService(AccountServiceOptions{API: &fakeAccountAPI{
		impersonateFunc: func(_ context.Context, token, userID string) (model.ImpersonationGrant, error) {
			assert.Equal(t, "tok0", token)
			return model.ImpersonationGrant{
				AccessToken: "imp-tok",
				User:        model.GrantedIdentity{ID: userID, Email: "viewer@example.com", Role: "viewer"},
			}, nil
		},
	}})

	summary, err := svc.Impersonate(context.Background(), f.store, "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", summary.ID)

	assert.Equal(t, "imp-tok", f.tokens.Value(domainauth.KeyAccessToken))
	assert.Equal(t, "tok0", f.tokens.Value(domainauth.KeyOriginalToken))
	snap := f.store.Snapshot()
	require.NotNil(t, snap.Impersonation)
	assert.Equal(t, "admin-1", snap.Impersonation.InitiatedBy)
	assert.Equal(t, 1, f.reloader.Count())
}

func TestAccountService_ImpersonateRequiresAdmin(t *testing.T) {
	f := signedInFixture(t, viewerIdentity)
	svc := NewAccountService(AccountServiceOptions{API: &fakeAccountAPI{
		impersonateFunc: func(context.Context, string, string) (model.ImpersonationGrant, error) {
			t.Fatal("API must not be called")
			return model.ImpersonationGrant{}, nil
		},
	}})

	_, err := svc.Impersonate(context.Background(), f.store, "u9")
	assert.True(t, apperrors.IsForbidden(err))
}

func TestAccountService_ImpersonateGrantFailure(t *testing.T) {
	f := signedInFixture(t, adminIdentity)
	svc := NewAccountService(AccountServiceOptions{API: &fakeAccountAPI{
		impersonateFunc: func(context.Context, string, string) (model.ImpersonationGrant, error) {
			return model.ImpersonationGrant{}, errors.New("timeout")
		},
	}})

	_, err := svc.Impersonate(context.Background(), f.store, "u2")
	require.Error(t, err)
	assert.Equal(t, "tok0", f.tokens.Value(domainauth.KeyAccessToken))
	assert.False(t, f.store.Snapshot().Impersonating)
}

func TestAccountService_Anonymous(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.store.Init(context.Background())
	svc := NewAccountService(AccountServiceOptions{API: &fakeAccountAPI{}})

	_, err := svc.Profile(context.Background(), f.store)
	assert.True(t, apperrors.IsUnauthenticated(err))
}
