package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/target/media-console/internal/domain/auth"
	apperrors "github.com/target/media-console/internal/errors"
	"github.com/target/media-console/internal/observability/metrics"
	"github.com/target/media-console/internal/ports"
)

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Tokens   ports.TokenStore
	API      ports.AuthAPI
	Reloader ports.Reloader
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// SessionStore owns the authentication and impersonation state of one client.
// Durable state lives in Tokens; everything else is rebuilt by Init.
type SessionStore struct {
	tokens   ports.TokenStore
	api      ports.AuthAPI
	reloader ports.Reloader
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// flowMu serializes state transitions; mu guards the fields below it.
	flowMu sync.Mutex

	mu            sync.RWMutex
	state         domainauth.State
	loading       bool
	identity      *domainauth.Identity
	token         string
	impersonating bool
	impersonation *domainauth.ImpersonationRecord

	subMu   sync.Mutex
	subs    map[int]func(domainauth.Snapshot)
	nextSub int

	startOnce sync.Once
	readyOnce sync.Once
	ready     chan struct{}
}

// NewSessionStore constructs a SessionStore in the Initializing state.
func NewSessionStore(opts SessionStoreOptions) *SessionStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reloader := opts.Reloader
	if reloader == nil {
		reloader = ports.ReloadFunc(nil)
	}
	return &SessionStore{
		tokens:   opts.Tokens,
		api:      opts.API,
		reloader: reloader,
		logger:   logger.With("component", "session"),
		metrics:  opts.Metrics,
		state:    domainauth.StateInitializing,
		loading:  true,
		subs:     map[int]func(domainauth.Snapshot){},
		ready:    make(chan struct{}),
	}
}

// Start runs Init once in the background. Callers observe Loading until Ready is closed.
func (s *SessionStore) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.Init(context.WithoutCancel(ctx))
	})
}

// Ready returns a channel closed once the initial load has finished.
func (s *SessionStore) Ready() <-chan struct{} {
	return s.ready
}

func (s *SessionStore) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Init loads the persisted token and verifies it against the API.
// Verification failures clear durable state and end in Anonymous; they are never returned.
func (s *SessionStore) Init(ctx context.Context) {
	s.flowMu.Lock()
	defer s.flowMu.Unlock()
	defer s.markReady()

	s.update(func() {
		s.state = domainauth.StateInitializing
		s.loading = true
	})

	token, err := s.tokens.Get(ctx, domainauth.KeyAccessToken)
	if err != nil {
		s.logger.WarnContext(ctx, "read persisted token failed", "error", err)
		token = ""
	}
	if token == "" {
		s.metrics.Verification(metrics.ResultNoop)
		s.update(s.resetLocked)
		return
	}

	s.update(func() { s.state = domainauth.StateVerifying })

	identity, err := s.api.Me(ctx, token)
	if err != nil {
		s.metrics.Verification(metrics.ResultError)
		s.logger.WarnContext(ctx, "stored token verification failed", "error", err)
		if delErr := s.tokens.Delete(ctx, domainauth.KeyAccessToken, domainauth.KeyOriginalToken); delErr != nil {
			s.logger.ErrorContext(ctx, "clear persisted tokens failed", "error", delErr)
		}
		s.update(s.resetLocked)
		return
	}
	s.metrics.Verification(metrics.ResultSuccess)

	original, err := s.tokens.Get(ctx, domainauth.KeyOriginalToken)
	if err != nil {
		s.logger.WarnContext(ctx, "read original token failed", "error", err)
		original = ""
	}

	s.update(func() {
		s.state = domainauth.StateAuthenticated
		s.loading = false
		s.identity = &identity
		s.token = token
		s.impersonating = false
		s.impersonation = nil
		if original != "" {
			s.impersonating = true
			s.impersonation = &domainauth.ImpersonationRecord{
				User:          identity.Summary(),
				InitiatedBy:   tokenSubject(original),
				OriginalToken: original,
			}
		}
	})
	s.logger.InfoContext(ctx, "session verified",
		"user_id", identity.ID,
		"tenant_id", identity.TenantID,
		"impersonating", original != "",
	)
}

// Login exchanges credentials for a token, verifies it, and only then persists it.
func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if password == "" {
		return apperrors.ValidationField("password", "password is required")
	}

	err := s.authenticate(ctx, func() (string, error) {
		return s.api.PasswordToken(ctx, email, password)
	})
	s.metrics.AuthFlow("login", err)
	if err != nil {
		s.logger.InfoContext(ctx, "login failed", "email", email, "error", err)
	}
	return err
}

// Signup provisions a tenant with its first admin and signs in as that admin.
func (s *SessionStore) Signup(ctx context.Context, email, password, tenantName string) error {
	in := ports.SignupInput{
		Email:      strings.TrimSpace(email),
		Password:   password,
		TenantName: strings.TrimSpace(tenantName),
	}
	switch {
	case in.Email == "":
		return apperrors.ValidationField("email", "email is required")
	case in.Password == "":
		return apperrors.ValidationField("password", "password is required")
	case in.TenantName == "":
		return apperrors.ValidationField("tenant_name", "tenant name is required")
	}

	err := s.authenticate(ctx, func() (string, error) {
		return s.api.Signup(ctx, in)
	})
	s.metrics.AuthFlow("signup", err)
	if err != nil {
		s.logger.InfoContext(ctx, "signup failed", "email", in.Email, "error", err)
	}
	return err
}

// authenticate runs the shared two-step credential contract.
func (s *SessionStore) authenticate(ctx context.Context, exchange func() (string, error)) error {
	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	token, err := exchange()
	if err != nil {
		return credentialError(err)
	}

	identity, err := s.api.Me(ctx, token)
	if err != nil {
		return credentialError(err)
	}

	if err := s.tokens.Set(ctx, domainauth.KeyAccessToken, token); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist session token")
	}
	if err := s.tokens.Delete(ctx, domainauth.KeyOriginalToken); err != nil {
		s.logger.WarnContext(ctx, "clear stale original token failed", "error", err)
	}

	s.update(func() {
		s.state = domainauth.StateAuthenticated
		s.loading = false
		s.identity = &identity
		s.token = token
		s.impersonating = false
		s.impersonation = nil
	})
	s.markReady()
	s.logger.InfoContext(ctx, "session authenticated", "user_id", identity.ID, "tenant_id", identity.TenantID)
	return nil
}

// Logout notifies the API best-effort and unconditionally clears all session state.
// Only a failure to clear durable storage is returned.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	token := s.Token()
	if token == "" {
		stored, err := s.tokens.Get(ctx, domainauth.KeyAccessToken)
		if err != nil {
			s.logger.WarnContext(ctx, "read persisted token failed", "error", err)
		}
		token = stored
	}

	var notifyErr error
	if token != "" {
		notifyErr = s.api.Logout(ctx, token)
		if notifyErr != nil {
			s.logger.WarnContext(ctx, "server logout failed", "error", notifyErr)
		}
	}
	s.metrics.AuthFlow("logout", notifyErr)

	clearErr := s.tokens.Delete(ctx, domainauth.KeyAccessToken, domainauth.KeyOriginalToken)
	s.update(s.resetLocked)
	s.markReady()

	if clearErr != nil {
		s.logger.ErrorContext(ctx, "clear persisted tokens failed", "error", clearErr)
		return fmt.Errorf("clear session tokens: %w", clearErr)
	}
	return nil
}

// StartImpersonation swaps the active token for newToken, keeping the admin's own token
// so EndImpersonation can restore it, then asks the Reloader to rebuild from storage.
// Starting again while already impersonating keeps the first saved original token.
func (s *SessionStore) StartImpersonation(ctx context.Context, newToken string, user domainauth.IdentitySummary, adminID string) error {
	err := s.startImpersonation(ctx, newToken, user, adminID)
	s.metrics.Impersonation("start", err)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "impersonation started", "admin_id", adminID, "user_id", user.ID)
	s.reloader.Reload(ctx)
	return nil
}

func (s *SessionStore) startImpersonation(ctx context.Context, newToken string, user domainauth.IdentitySummary, adminID string) error {
	if newToken == "" {
		return apperrors.ValidationField("access_token", "impersonation token is required")
	}

	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	s.mu.RLock()
	authenticated := s.identity != nil
	var original string
	if s.impersonation != nil {
		original = s.impersonation.OriginalToken
	}
	current := s.token
	s.mu.RUnlock()

	if !authenticated {
		return apperrors.Unauthenticated("impersonation requires an authenticated session")
	}

	if original == "" {
		stored, err := s.tokens.Get(ctx, domainauth.KeyOriginalToken)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "read original token")
		}
		original = stored
	}
	if original == "" {
		stored, err := s.tokens.Get(ctx, domainauth.KeyAccessToken)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "read active token")
		}
		original = stored
	}
	if original == "" {
		original = current
	}
	if original == "" {
		return apperrors.Unauthenticated("no active token to preserve")
	}

	if err := s.tokens.Set(ctx, domainauth.KeyOriginalToken, original); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist original token")
	}
	if err := s.tokens.Set(ctx, domainauth.KeyAccessToken, newToken); err != nil {
		// Active token is unchanged, so the marker must go too.
		if delErr := s.tokens.Delete(ctx, domainauth.KeyOriginalToken); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist impersonation token")
	}

	s.update(func() {
		s.token = newToken
		s.impersonating = true
		s.impersonation = &domainauth.ImpersonationRecord{
			User:          user,
			InitiatedBy:   adminID,
			OriginalToken: original,
		}
	})
	return nil
}

// EndImpersonation restores the admin's original token and clears the overlay.
// With no saved original token the session is cleared entirely, leaving the caller signed out.
func (s *SessionStore) EndImpersonation(ctx context.Context) error {
	restored, err := s.endImpersonation(ctx)
	s.metrics.Impersonation("end", err)
	if err != nil {
		return err
	}
	if restored {
		s.logger.InfoContext(ctx, "impersonation ended")
	} else {
		s.logger.WarnContext(ctx, "impersonation ended without an original token; session cleared")
	}
	s.reloader.Reload(ctx)
	return nil
}

func (s *SessionStore) endImpersonation(ctx context.Context) (bool, error) {
	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	s.mu.RLock()
	var original string
	if s.impersonation != nil {
		original = s.impersonation.OriginalToken
	}
	s.mu.RUnlock()

	if original == "" {
		stored, err := s.tokens.Get(ctx, domainauth.KeyOriginalToken)
		if err != nil {
			return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "read original token")
		}
		original = stored
	}

	if original == "" {
		clearErr := s.tokens.Delete(ctx, domainauth.KeyAccessToken, domainauth.KeyOriginalToken)
		s.update(s.resetLocked)
		if clearErr != nil {
			return false, apperrors.Wrap(clearErr, apperrors.ErrCodeInternal, "clear session tokens")
		}
		return false, nil
	}

	if err := s.tokens.Set(ctx, domainauth.KeyAccessToken, original); err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "restore original token")
	}
	if err := s.tokens.Delete(ctx, domainauth.KeyOriginalToken); err != nil {
		s.logger.WarnContext(ctx, "delete original token marker failed", "error", err)
	}

	s.update(func() {
		s.token = original
		s.impersonating = false
		s.impersonation = nil
	})
	return true, nil
}

// RefreshIdentity re-verifies the active token and replaces the identity wholesale.
func (s *SessionStore) RefreshIdentity(ctx context.Context) error {
	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	token := s.Token()
	if token == "" {
		return apperrors.Unauthenticated("not signed in")
	}
	identity, err := s.api.Me(ctx, token)
	if err != nil {
		if !isRejected(err) {
			return apperrors.Wrap(err, apperrors.ErrCodeUpstream, "refresh identity")
		}
		s.metrics.Verification(metrics.ResultError)
		s.logger.WarnContext(ctx, "active token rejected on refresh", "error", err)
		if delErr := s.tokens.Delete(ctx, domainauth.KeyAccessToken, domainauth.KeyOriginalToken); delErr != nil {
			s.logger.ErrorContext(ctx, "clear persisted tokens failed", "error", delErr)
		}
		s.update(s.resetLocked)
		return apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "session expired")
	}
	s.update(func() { s.identity = &identity })
	return nil
}

// isRejected reports whether the API refused the token itself.
func isRejected(err error) bool {
	var sc statusCoder
	return errors.As(err, &sc) && sc.StatusCode() == http.StatusUnauthorized
}

// Token returns the active bearer token, or "" when anonymous.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Snapshot returns a copy of the current state.
func (s *SessionStore) Snapshot() domainauth.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *SessionStore) snapshotLocked() domainauth.Snapshot {
	snap := domainauth.Snapshot{
		State:         s.state,
		Loading:       s.loading,
		Impersonating: s.impersonating,
	}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	if s.impersonation != nil {
		rec := *s.impersonation
		snap.Impersonation = &rec
	}
	return snap
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs synchronously during the transition and must not start another one.
// The returned function unsubscribes.
func (s *SessionStore) Subscribe(fn func(domainauth.Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// update applies mutate under the state lock and then notifies subscribers.
func (s *SessionStore) update(mutate func()) {
	s.mu.Lock()
	mutate()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.subMu.Lock()
	fns := make([]func(domainauth.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// resetLocked returns state to Anonymous. Caller holds mu.
func (s *SessionStore) resetLocked() {
	s.state = domainauth.StateAnonymous
	s.loading = false
	s.identity = nil
	s.token = ""
	s.impersonating = false
	s.impersonation = nil
}

// serverMessager is implemented by API errors that carry a server-provided message.
type serverMessager interface {
	ServerMessage() string
}

func credentialError(err error) error {
	var msg string
	var sm serverMessager
	if errors.As(err, &sm) {
		msg = sm.ServerMessage()
	}
	return apperrors.NewAuthenticationError(msg, err)
}

// tokenSubject returns the sub claim of a JWT without verifying it, or "".
func tokenSubject(token string) string {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	return claims.Subject
}
