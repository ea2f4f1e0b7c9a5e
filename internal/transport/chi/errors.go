package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/somunicate/dbas/internal/domain"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

type sentinelMapping struct {
	sentinel error
	status   int
	code     ErrorCode
}

// sentinelMappings is ordered: the first match wins.
var sentinelMappings = []sentinelMapping{
	{domain.ErrEmptyDimensionSet, http.StatusBadRequest, ErrorCodeEmptyDimensionSet},
	{domain.ErrUnknownDimension, http.StatusBadRequest, ErrorCodeUnknownDimension},
	{domain.ErrUnknownGroup, http.StatusBadRequest, ErrorCodeUnknownGroup},
	{domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed},
	{domain.ErrSingularMatrix, http.StatusUnprocessableEntity, ErrorCodeMahalanobisUnavailable},
	{domain.ErrCatalogNotLoaded, http.StatusServiceUnavailable, ErrorCodeCatalogNotLoaded},
	{domain.ErrSoundNotFound, http.StatusNotFound, ErrorCodeSoundNotFound},
	{domain.ErrDataFormat, http.StatusUnprocessableEntity, ErrorCodeDataFormat},
}

func defaultErrorHandlers() []errorHandler {
	handlers := make([]errorHandler, 0, len(sentinelMappings)+1)
	handlers = append(handlers, dataFormatHandler)
	for _, m := range sentinelMappings {
		handlers = append(handlers, sentinelHandler(m.sentinel, m.status, m.code))
	}
	return handlers
}

// errorStatus returns the HTTP status and code for err.
func errorStatus(err error) (int, ErrorCode) {
	for _, m := range sentinelMappings {
		if errors.Is(err, m.sentinel) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrorCodeInternalError
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

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, m := range sentinelMappings {
		if errors.Is(err, m.sentinel) {
			return m.sentinel.Error()
		}
	}
	return "internal error"
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

// dataFormatHandler reports the offending column of a rejected reference table.
// Source paths are not echoed to the client.
func dataFormatHandler(w http.ResponseWriter, err error, msg string) bool {
	var dfe *domain.DataFormatError
	if !errors.As(err, &dfe) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"code":    ErrorCodeDataFormat,
		"message": msg,
		"column":  dfe.Column,
		"reason":  dfe.Reason,
	})
	return true
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
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
