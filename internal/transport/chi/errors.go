package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/directory/internal/domain"
)

// ErrorCode is the machine-readable error code of an API error response.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeMalformedQuery    ErrorCode = "malformed_query"
	CodeInvalidParameter  ErrorCode = "invalid_parameter"
	CodeInvalidLocation   ErrorCode = "invalid_location"
	CodeUnknownPostalCode ErrorCode = "unknown_postal_code"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeInvalidImage      ErrorCode = "invalid_image"
	CodeNotFound          ErrorCode = "not_found"
	CodeForbidden         ErrorCode = "forbidden"
	CodeLimitReached      ErrorCode = "limit_reached"
	CodeStorageDisabled   ErrorCode = "storage_disabled"
	CodeQueryFailed       ErrorCode = "query_failed"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrMalformedQuery, http.StatusBadRequest, CodeMalformedQuery),
		sentinelHandler(domain.ErrInvalidParameter, http.StatusBadRequest, CodeInvalidParameter),
		sentinelHandler(domain.ErrInvalidLocation, http.StatusBadRequest, CodeInvalidLocation),
		sentinelHandler(domain.ErrUnknownPostalCode, http.StatusBadRequest, CodeUnknownPostalCode),
		sentinelHandler(domain.ErrInvalidBusiness, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidImage, http.StatusBadRequest, CodeInvalidImage),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
		sentinelHandler(domain.ErrLimitReached, http.StatusConflict, CodeLimitReached),
		sentinelHandler(domain.ErrStorageDisabled, http.StatusServiceUnavailable, CodeStorageDisabled),
		sentinelHandler(domain.ErrQueryExecution, http.StatusInternalServerError, CodeQueryFailed),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Input errors echo what the client sent; everything else is reduced to its
// sentinel text.
func safeDomainMessage(err error) string {
	var (
		mqe *domain.MalformedQueryError
		pe  *domain.ParameterError
		le  *domain.LocationError
		pce *domain.PostalCodeError
	)
	switch {
	case errors.As(err, &mqe):
		return mqe.Error()
	case errors.As(err, &pe):
		return pe.Error()
	case errors.As(err, &le):
		return le.Error()
	case errors.As(err, &pce):
		return pce.Error()
	case errors.Is(err, domain.ErrInvalidBusiness):
		return fromSentinel(err, domain.ErrInvalidBusiness)
	case errors.Is(err, domain.ErrInvalidImage):
		return fromSentinel(err, domain.ErrInvalidImage)
	}

	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrLimitReached,
		domain.ErrStorageDisabled,
		domain.ErrQueryExecution,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// fromSentinel trims wrapping context that precedes the sentinel text.
func fromSentinel(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()); i >= 0 {
		return msg[i:]
	}
	return sentinel.Error()
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
