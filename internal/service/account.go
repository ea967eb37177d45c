package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	domainauth "github.com/target/media-console/internal/domain/auth"
	apperrors "github.com/target/media-console/internal/errors"
	"github.com/target/media-console/internal/ports"
)

const minPasswordLength = 8

// AccountServiceOptions groups dependencies for AccountService.
type AccountServiceOptions struct {
	API    ports.AccountAPI
	Logger *slog.Logger
}

// AccountService covers the signed-in user's own profile and the admin impersonation grant.
type AccountService struct {
	api    ports.AccountAPI
	logger *slog.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(opts AccountServiceOptions) *AccountService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{api: opts.API, logger: logger.With("component", "account")}
}

func activeToken(sess *SessionStore) (string, error) {
	token := sess.Token()
	if token == "" {
		return "", apperrors.Unauthenticated("not signed in")
	}
	return token, nil
}

// Profile returns the caller's profile.
func (s *AccountService) Profile(ctx context.Context, sess *SessionStore) (json.RawMessage, error) {
	token, err := activeToken(sess)
	if err != nil {
		return nil, err
	}
	out, err := s.api.Profile(ctx, token)
	if err != nil {
		return nil, upstreamError(err, "get profile")
	}
	return out, nil
}

// UpdateProfile patches the caller's profile and then refreshes the session identity.
func (s *AccountService) UpdateProfile(ctx context.Context, sess *SessionStore, body json.RawMessage) (json.RawMessage, error) {
	token, err := activeToken(sess)
	if err != nil {
		return nil, err
	}
	if err := validateBody(body); err != nil {
		return nil, err
	}
	out, err := s.api.UpdateProfile(ctx, token, body)
	if err != nil {
		return nil, upstreamError(err, "update profile")
	}
	if err := sess.RefreshIdentity(ctx); err != nil {
		s.logger.WarnContext(ctx, "refresh identity after profile update failed", "error", err)
	}
	return out, nil
}

// ChangePassword changes the caller's password.
func (s *AccountService) ChangePassword(ctx context.Context, sess *SessionStore, current, next string) error {
	token, err := activeToken(sess)
	if err != nil {
		return err
	}
	switch {
	case current == "":
		return apperrors.ValidationField("current_password", "current password is required")
	case len(next) < minPasswordLength:
		return apperrors.ValidationField("new_password", "new password must be at least 8 characters")
	case next == current:
		return apperrors.ValidationField("new_password", "new password must differ from the current one")
	}
	if err := s.api.ChangePassword(ctx, token, current, next); err != nil {
		return upstreamError(err, "change password")
	}
	return nil
}

// Impersonate obtains a token acting as userID and hands it to the session.
// Only admins may impersonate; the grant itself is enforced again by the API.
func (s *AccountService) Impersonate(ctx context.Context, sess *SessionStore, userID string) (domainauth.IdentitySummary, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domainauth.IdentitySummary{}, apperrors.ValidationField("user_id", "user id is required")
	}

	snap := sess.Snapshot()
	if snap.Identity == nil {
		return domainauth.IdentitySummary{}, apperrors.Unauthenticated("not signed in")
	}
	if !snap.Identity.Role.Satisfies(domainauth.RoleAdmin) {
		return domainauth.IdentitySummary{}, apperrors.Forbidden("admin role required")
	}
	if snap.Identity.ID == userID {
		return domainauth.IdentitySummary{}, apperrors.Validation("cannot impersonate yourself")
	}

	grant, err := s.api.Impersonate(ctx, sess.Token(), userID)
	if err != nil {
		return domainauth.IdentitySummary{}, upstreamError(err, "request impersonation")
	}

	summary := domainauth.IdentitySummary{
		ID:        grant.User.ID,
		Email:     grant.User.Email,
		FirstName: grant.User.FirstName,
		LastName:  grant.User.LastName,
		Role:      grant.User.Role,
	}
	if err := sess.StartImpersonation(ctx, grant.AccessToken, summary, snap.Identity.ID); err != nil {
		return domainauth.IdentitySummary{}, err
	}
	return summary, nil
}
