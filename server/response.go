package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
)

// maxBodyBytes bounds request bodies; domain content fields are free text.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError classifies err, logs it, and writes the mapped response.
// Internal failures are logged with their full detail but never shown.
func (s *DashboardServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := logger.FromContext(r.Context(), s.logger)
	fields := []interface{}{
		logger.FieldMethod, r.Method,
		logger.FieldPath, r.URL.Path,
		logger.FieldStatus, status,
		logger.FieldError, err.Error(),
	}
	switch {
	case status >= http.StatusInternalServerError:
		log.Errorw("Request failed", append(fields, "detail", errors.GetAllDetails(err))...)
	case status == http.StatusForbidden:
		log.Infow("Request denied", fields...)
	default:
		log.Debugw("Request rejected", fields...)
	}
	writeError(w, status, messageFor(err))
}

// readJSON decodes the request body into v. A malformed body is a
// validation error so it surfaces as 400 with a readable message.
func readJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return errors.NewValidationErrorf("Invalid request body: %v", err)
	}
	if len(body) > maxBodyBytes {
		return errors.NewValidationError("Request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.NewValidationError("Request body is required")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.IsValidationError(err) {
			return err
		}
		return errors.NewValidationErrorf("Invalid request body: %v", err)
	}
	return nil
}

// logWriteErr reports an encode failure after the header has been sent.
func logWriteErr(log *zap.SugaredLogger, err error) {
	if err != nil {
		log.Debugw("Response write failed", logger.FieldError, err)
	}
}
