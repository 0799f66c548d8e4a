package api

import (
	"errors"
	"net/http"

	service "github.com/aragon/ownership-token-framework/internal/app"
	"github.com/aragon/ownership-token-framework/internal/domain/submission"
	"github.com/aragon/ownership-token-framework/internal/domain/token"
	"github.com/aragon/ownership-token-framework/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error codes returned in the response body.
const (
	codeBadRequest = "bad_request"
	codeNotFound   = "not_found"
	codeNotReady   = "not_ready"
	codeInternal   = "internal_error"
)

const (
	msgBadRequest = "Invalid request body."
	msgNotFound   = "Token not found."
	msgNotReady   = "Data is still loading. Please try again shortly."
)

// statusForKind maps submission failures to HTTP statuses.
var statusForKind = map[submission.Kind]int{
	submission.KindValidation:    http.StatusBadRequest,
	submission.KindInProgress:    http.StatusConflict,
	submission.KindRateLimited:   http.StatusTooManyRequests,
	submission.KindConfiguration: http.StatusInternalServerError,
	submission.KindUnavailable:   http.StatusBadGateway,
}

// errorWriter turns errors into JSON bodies that never expose causes.
type errorWriter struct {
	logger logger.Logger
}

func (e *errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	var se *submission.Error
	switch {
	case errors.As(err, &se):
		status, ok := statusForKind[se.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorResponse{Code: string(se.Kind), Message: submission.UserMessage(err)})
	case errors.Is(err, token.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: codeNotFound, Message: msgNotFound})
	case errors.Is(err, service.ErrNotReady):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: codeNotReady, Message: msgNotReady})
	case errors.Is(err, ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: codeBadRequest, Message: msgBadRequest})
	default:
		e.logger.Error(r.Context(), "unexpected handler error",
			logger.String("path", r.URL.Path),
			logger.String("request_id", w.Header().Get(requestIDHeader)),
			logger.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: codeInternal, Message: submission.MsgUnexpected})
	}
}
