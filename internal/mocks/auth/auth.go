package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"maps"
	"sync"

	domainauth "github.com/target/media-console/internal/domain/auth"
	"github.com/target/media-console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.TokenStore = (*MemoryTokenStore)(nil)
	_ ports.AuthAPI    = (*FakeAuthAPI)(nil)
	_ ports.Reloader   = (*RecordingReloader)(nil)
)

// ErrInvalidCredentials is returned by FakeAuthAPI for unknown email/password pairs.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned by FakeAuthAPI.Me for tokens it did not issue.
var ErrInvalidToken = errors.New("invalid token")

// MemoryTokenStore is an in-memory TokenStore for unit tests.
// Set SetErr or GetErr to simulate storage failures.
type MemoryTokenStore struct {
	mu     sync.Mutex
	values map[string]string

	GetErr error
	SetErr error
}

// NewMemoryTokenStore creates a store pre-populated with seed.
func NewMemoryTokenStore(seed map[string]string) *MemoryTokenStore {
	values := make(map[string]string, len(seed))
	maps.Copy(values, seed)
	return &MemoryTokenStore{values: values}
}

func (m *MemoryTokenStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", m.GetErr
	}
	return m.values[key], nil
}

func (m *MemoryTokenStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func (m *MemoryTokenStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Has reports whether key is present.
func (m *MemoryTokenStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// Value returns the stored value for key.
func (m *MemoryTokenStore) Value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

// FakeAuthAPI simulates the external auth endpoints.
// Function fields override the default table-driven behavior.
type FakeAuthAPI struct {
	PasswordTokenFunc func(ctx context.Context, email, password string) (string, error)
	SignupFunc        func(ctx context.Context, in ports.SignupInput) (string, error)
	MeFunc            func(ctx context.Context, token string) (domainauth.Identity, error)
	LogoutFunc        func(ctx context.Context, token string) error

	mu sync.Mutex
	// Users maps email to password and the token issued on success.
	Users map[string]FakeUser
	// Identities maps issued tokens to the identity /auth/me returns.
	Identities map[string]domainauth.Identity

	MeCalls     []string
	LogoutCalls []string
}

// FakeUser is a credential registered with FakeAuthAPI.
type FakeUser struct {
	Password string
	Token    string
}

// NewFakeAuthAPI creates an empty fake.
func NewFakeAuthAPI() *FakeAuthAPI {
	return &FakeAuthAPI{
		Users:      map[string]FakeUser{},
		Identities: map[string]domainauth.Identity{},
	}
}

// AddUser registers credentials that exchange for token, which in turn verifies as id.
func (f *FakeAuthAPI) AddUser(email, password, token string, id domainauth.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Users[email] = FakeUser{Password: password, Token: token}
	f.Identities[token] = id
}

// AddToken registers a token that verifies as id without credentials.
func (f *FakeAuthAPI) AddToken(token string, id domainauth.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Identities[token] = id
}

func (f *FakeAuthAPI) PasswordToken(ctx context.Context, email, password string) (string, error) {
	if f.PasswordTokenFunc != nil {
		return f.PasswordTokenFunc(ctx, email, password)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[email]
	if !ok || u.Password != password {
		return "", ErrInvalidCredentials
	}
	return u.Token, nil
}

func (f *FakeAuthAPI) Signup(ctx context.Context, in ports.SignupInput) (string, error) {
	if f.SignupFunc != nil {
		return f.SignupFunc(ctx, in)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.Users[in.Email]; exists {
		return "", errors.New("email already registered")
	}
	token := "signup-" + in.Email
	f.Users[in.Email] = FakeUser{Password: in.Password, Token: token}
	f.Identities[token] = domainauth.Identity{
		ID:         "user-" + in.Email,
		Email:      in.Email,
		Role:       domainauth.RoleAdmin,
		TenantID:   "tenant-" + in.TenantName,
		TenantName: in.TenantName,
	}
	return token, nil
}

func (f *FakeAuthAPI) Me(ctx context.Context, token string) (domainauth.Identity, error) {
	f.mu.Lock()
	f.MeCalls = append(f.MeCalls, token)
	f.mu.Unlock()
	if f.MeFunc != nil {
		return f.MeFunc(ctx, token)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.Identities[token]
	if !ok {
		return domainauth.Identity{}, ErrInvalidToken
	}
	return id, nil
}

func (f *FakeAuthAPI) Logout(ctx context.Context, token string) error {
	f.mu.Lock()
	f.LogoutCalls = append(f.LogoutCalls, token)
	f.mu.Unlock()
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx, token)
	}
	return nil
}

// RecordingReloader counts reload requests.
type RecordingReloader struct {
	mu    sync.Mutex
	count int
}

func (r *RecordingReloader) Reload(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

// Count returns how many reloads were requested.
func (r *RecordingReloader) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
