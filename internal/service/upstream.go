package service

import (
	"errors"
	"net/http"

	apperrors "github.com/target/media-console/internal/errors"
)

// statusCoder is implemented by API errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// upstreamError translates an external API failure into an AppError the HTTP layer can render.
// The server's own message is kept when it sent one.
func upstreamError(err error, op string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	msg := op
	var sm serverMessager
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		msg = sm.ServerMessage()
	}

	code := apperrors.ErrCodeUpstream
	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusNotFound:
			code = apperrors.ErrCodeNotFound
		case http.StatusUnauthorized:
			code = apperrors.ErrCodeUnauthenticated
		case http.StatusForbidden:
			code = apperrors.ErrCodeForbidden
		case http.StatusConflict:
			code = apperrors.ErrCodeConflict
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			code = apperrors.ErrCodeValidation
		}
	}
	return apperrors.Wrap(err, code, msg)
}
