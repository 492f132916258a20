package http

import (
	"errors"
	"net/http"

	"github.com/IgorGrieder/tinylink/internal/constants"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	"github.com/IgorGrieder/tinylink/internal/processing/links"
	"github.com/IgorGrieder/tinylink/pkg/httputils"
	"go.uber.org/zap"
)

// writeServiceError maps a processing error to its API response. Only
// failures the client cannot fix are logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, op, code string) {
	switch {
	case errors.Is(err, links.ErrNotFound):
		httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
	case errors.Is(err, links.ErrCodeConflict):
		httputils.WriteAPIError(w, r, constants.ErrCodeConflict)
	case errors.Is(err, links.ErrInvalidURL):
		httputils.WriteAPIError(w, r, constants.ErrInvalidURL)
	case errors.Is(err, links.ErrInvalidCode):
		httputils.WriteAPIError(w, r, constants.ErrInvalidCode)
	case errors.Is(err, links.ErrTransactionFailure):
		logger.Warn(op+" failed", zap.Error(err), zap.String("code", code))
		w.Header().Set("Retry-After", "1")
		httputils.WriteAPIError(w, r, constants.ErrTransactionFailed)
	case errors.Is(err, links.ErrStorageUnavailable):
		logger.Error(op+" failed", zap.Error(err), zap.String("code", code))
		httputils.WriteAPIError(w, r, constants.ErrStorageUnavailable)
	default:
		logger.Error(op+" failed", zap.Error(err), zap.String("code", code))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
	}
}
