package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/internal/preparer"
	"github.com/luxfi/fhevm/internal/queue"
	"github.com/luxfi/fhevm/internal/storage"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// errorKind names a validation failure for clients and metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, fhevm.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, fhevm.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, fhevm.ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, fhevm.ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, storage.ErrInvalidHandle):
		return "invalid_handle"
	default:
		return ""
	}
}

// statusFor maps an error to the HTTP status returned to the client.
func statusFor(err error) int {
	switch {
	case fhevm.IsValidationError(err), errors.Is(err, storage.ErrInvalidHandle):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, queue.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, preparer.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrStorageFull):
		return http.StatusInsufficientStorage
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		s.log.Error("Error marshalling JSON response", zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "failed to marshal response", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(resp); err != nil {
		s.log.Error("Error writing response", zap.Error(err))
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg, kind string) {
	resp, err := json.Marshal(ErrorResponse{Error: msg, Kind: kind})
	if err != nil {
		s.log.Error("Error marshalling JSON error response", zap.Error(err))
		resp = []byte(msg)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(resp); err != nil {
		s.log.Error("Error writing error response", zap.Error(err))
	}
}

// writeError reports err with its message unmodified. Internal failures are
// logged and replaced with a generic message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	kind := errorKind(err)
	if kind != "" {
		s.metrics.Rejections.WithLabelValues(kind).Inc()
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		s.writeJSONError(w, status, "internal error", "")
		return
	}
	s.writeJSONError(w, status, err.Error(), kind)
}
