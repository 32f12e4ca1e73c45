package http

import (
	"errors"
	"net/http"

	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/operations"
	"stockpulse/internal/storage"
)

// ErrorResponder writes problem responses
type ErrorResponder interface {
	HandleError(w http.ResponseWriter, r *http.Request, err error)
}

// apiError converts service sentinels into API errors the error handler
// knows how to render. ProcessingErrors and unknown errors pass through.
func apiError(err error) error {
	switch {
	case errors.Is(err, operations.ErrQueueFull):
		return apperrors.ErrQueueFull
	case errors.Is(err, operations.ErrJobNotFound):
		return apperrors.ErrJobNotFound
	case errors.Is(err, operations.ErrJobNotCancellable):
		return apperrors.New(http.StatusConflict, "CONFLICT", "Upload job has already finished")
	case errors.Is(err, operations.ErrOperationNotFound):
		return apperrors.NotFoundError("Operation")
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.ErrDatasetNotFound
	}
	return err
}
