package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/target/media-console/internal/errors"
)

// maxBodyBytes caps JSON request bodies accepted by the console.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// readRawJSON reads a request body that is forwarded to the API untouched.
// Returns false after writing a 400 when the body is missing or malformed.
func readRawJSON(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return nil, false
	}
	if len(bytes.TrimSpace(body)) == 0 || !json.Valid(body) {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_json",
			Err:     errors.New("request body must be a JSON document"),
		})
		return nil, false
	}
	return json.RawMessage(body), true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// writeServiceError maps a service error onto a status and error code.
// Only the AppError message reaches the client; causes are logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var authErr *apperrors.AuthenticationError
	if errors.As(err, &authErr) {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_failed", Err: authErr})
		return
	}

	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	status := apperrors.HTTPStatus(code)

	msg := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && code != apperrors.ErrCodeInternal {
		msg = appErr.Message
	}

	switch {
	case code == apperrors.ErrCodeUpstream:
		logger.WarnContext(r.Context(), "upstream call failed", "path", r.URL.Path, "error", err)
	case status >= http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	body := map[string]string{"error": string(code), "message": msg}
	if field := apperrors.GetField(err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, status, body)
}
