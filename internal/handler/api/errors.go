package api

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"FXBias/internal/service/metrics"
	"FXBias/internal/services/risk"
	"FXBias/internal/services/scoring"
	"FXBias/internal/usecase"
	xhttp "FXBias/pkg/http"
	xlogger "FXBias/pkg/logger"
)

var badRequestErrs = []error{
	usecase.ErrUnknownCurrency,
	usecase.ErrNoContent,
	scoring.ErrInvalidScore,
	scoring.ErrEmptyRationale,
	scoring.ErrInvalidModifier,
	scoring.ErrUnknownIndicator,
	scoring.ErrInvalidTrade,
	scoring.ErrInvalidSettings,
	risk.ErrUnknownInstrument,
	risk.ErrInvalidSignal,
	risk.ErrInvalidConviction,
}

var conflictErrs = []error{
	usecase.ErrNotAnalyzed,
	usecase.ErrNoRiskSentiment,
}

// toAppError maps use case errors onto HTTP statuses. Anything unrecognised
// is an upstream failure when the operation calls out, internal otherwise.
func toAppError(err error, upstream bool) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, target := range badRequestErrs {
		if errors.Is(err, target) {
			return xhttp.BadRequestError(err.Error()).WithError(err)
		}
	}
	if errors.Is(err, usecase.ErrTradeNotFound) {
		return xhttp.NotFoundErrorf("%s", err.Error()).WithError(err)
	}
	for _, target := range conflictErrs {
		if errors.Is(err, target) {
			return xhttp.ConflictError(err.Error()).WithError(err)
		}
	}
	if upstream || errors.Is(err, context.DeadlineExceeded) {
		return xhttp.UpstreamError(err.Error()).WithError(err)
	}
	return xhttp.InternalError("Something went wrong").WithError(err)
}

func (h *BiasEchoHandler) fail(c echo.Context, endpoint string, err error, upstream bool) error {
	appErr := toAppError(err, upstream)
	metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
	if appErr.Status >= 500 {
		h.logger.Error(endpoint+" failed", xlogger.Error(err))
	} else {
		h.logger.Debug(endpoint+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
