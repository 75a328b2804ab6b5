package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"talkregistration/internal/delivery/http/helpers"
	"talkregistration/internal/domain"
)

// writeServiceError maps a service error onto the API envelope. notFound is
// the message used for domain.ErrNotFound. Unexpected errors are logged and
// reported as internal_error without their details.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFound string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		helpers.WriteValidationError(w, verr.Problems)
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, notFound)
	case errors.Is(err, domain.ErrInvalidCredentials):
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrInvalidToken):
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, domain.ErrInvalidToken.Error())
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrAlreadyRegistered):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, domain.ErrAlreadyRegistered.Error())
	case errors.Is(err, domain.ErrTalkFull):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, domain.ErrTalkFull.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, domain.ErrDuplicateEmail.Error())
	case errors.Is(err, domain.ErrTalkHasRegistrations):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, domain.ErrTalkHasRegistrations.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal server error")
	}
}
