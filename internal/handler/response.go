package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketplace-backend/internal/logging"
	"github.com/shinyyama/marketplace-backend/internal/middleware"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// writeServiceError maps a service error onto a status code. Unclassified
// errors are logged and reported as 500 with the given fallback message.
func writeServiceError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidParticipant),
		errors.Is(err, service.ErrInvalidProduct):
		return c.JSON(http.StatusBadRequest, NewErrorResponse(errorCode(err), err.Error()))
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrScopeMismatch):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", err.Error()))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", err.Error()))
	}
	lg := logging.Ctx(c.Request().Context())
	lg.Error().Err(err).Msg(fallback)
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", fallback))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidParticipant):
		return "invalid_participant"
	case errors.Is(err, service.ErrInvalidProduct):
		return "invalid_product"
	default:
		return "bad_request"
	}
}

func currentUID(c echo.Context) string {
	uid, _ := c.Get(middleware.ContextKeyUID).(string)
	return uid
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
