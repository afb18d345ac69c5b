package handlers

import (
	"context"
	stderrors "errors"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/demand"
	"pasale-analytics/internal/errors"
	"pasale-analytics/internal/recommend"
	"pasale-analytics/internal/segment"
	"pasale-analytics/internal/services"
)

// toAppError maps pipeline sentinels onto API error codes.
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, services.ErrNoData):
		appErr = errors.ServiceUnavailable("No data loaded")
	case stderrors.Is(err, services.ErrDataReplaced):
		appErr = errors.ServiceUnavailable("Data was reloaded during training. Retry the request.")
	case stderrors.Is(err, dataset.ErrSourceNotFound):
		appErr = errors.ServiceUnavailable("Data source not found")
	case stderrors.Is(err, demand.ErrModelNotTrained):
		appErr = errors.NotTrained("Model not trained. Train the model first.")
	case stderrors.Is(err, demand.ErrNotReady),
		stderrors.Is(err, demand.ErrNoValidRows),
		stderrors.Is(err, segment.ErrNotEnoughData),
		stderrors.Is(err, segment.ErrNotSegmented):
		appErr = errors.NotEnoughData(err.Error())
	case stderrors.Is(err, recommend.ErrPermissionDenied):
		appErr = errors.PermissionDenied("Premium features require subscription upgrade")
	case stderrors.Is(err, recommend.ErrInvalidPlan),
		stderrors.Is(err, demand.ErrInvalidScenario),
		stderrors.Is(err, demand.ErrUnknownTarget),
		stderrors.Is(err, services.ErrUnknownUserType):
		appErr = errors.Validation(err.Error())
	case stderrors.Is(err, services.ErrCustomerNotFound):
		appErr = errors.NotFound(err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		appErr = errors.ServiceUnavailable("Operation timed out")
	default:
		return errors.InternalWrap(err, "An unexpected error occurred")
	}
	appErr.Cause = err
	return appErr
}
