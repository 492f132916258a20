package httputils

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/IgorGrieder/tinylink/internal/constants"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const CorrelationIDHeader = "X-Correlation-Id"

// APIResponse is the JSON envelope of every API reply. Data is set on
// success, Error and Message on failure.
type APIResponse struct {
	ResponseTime  time.Time `json:"responseTime"`
	CorrelationId string    `json:"correlationId"`
	Code          string    `json:"code,omitempty"`
	Data          any       `json:"data,omitempty"`
	Error         string    `json:"error,omitempty"`
	Message       string    `json:"message,omitempty"`
}

// GetCorrelationID returns the caller's correlation id, or a fresh UUID
// when the request carries none.
func GetCorrelationID(r *http.Request) string {
	if id := r.Header.Get(CorrelationIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

func WriteAPIError(w http.ResponseWriter, r *http.Request, apiErr constants.APIError) {
	writeEnvelope(w, r, apiErr.Status, APIResponse{
		Error:   apiErr.Code,
		Message: apiErr.Message,
	})
}

func WriteAPISuccess(w http.ResponseWriter, r *http.Request, apiSuccess constants.APISuccess, data any) {
	writeEnvelope(w, r, apiSuccess.Status, APIResponse{
		Code: apiSuccess.Code,
		Data: data,
	})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp APIResponse) {
	resp.ResponseTime = time.Now().UTC()
	resp.CorrelationId = GetCorrelationID(r)

	w.Header().Set(CorrelationIDHeader, resp.CorrelationId)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode json response",
			zap.Error(err),
			zap.Int("status", status),
			zap.String("correlation_id", resp.CorrelationId),
		)
	}
}

// WriteAttachment sends body as a file download named filename.
func WriteAttachment(w http.ResponseWriter, r *http.Request, contentType, filename string, body []byte) {
	w.Header().Set(CorrelationIDHeader, GetCorrelationID(r))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Warn("failed to write attachment", zap.Error(err))
	}
}
