package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medcore/clinic-api/internal/model"
	"github.com/medcore/clinic-api/internal/service/appointment"
	authsvc "github.com/medcore/clinic-api/internal/service/auth"
	apperrors "github.com/medcore/clinic-api/pkg/errors"
)

type Response struct {
	Status     string            `json:"status"`
	Message    string            `json:"message,omitempty"`
	Data       interface{}       `json:"data,omitempty"`
	Pagination *model.Pagination `json:"pagination,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// statusFor maps service errors onto HTTP statuses. Conflict (409) and
// lock-busy (503) are deliberately distinct: the former means pick another
// slot, the latter means the same request is safe to retry.
func statusFor(err error) int {
	switch {
	case errors.Is(err, appointment.ErrTimeSlotUnavailable):
		return http.StatusConflict
	case errors.Is(err, appointment.ErrDoctorBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, appointment.ErrDoctorNotFound),
		errors.Is(err, appointment.ErrPatientNotFound):
		return http.StatusNotFound
	case errors.Is(err, appointment.ErrInvalidSchedule),
		errors.Is(err, appointment.ErrInvalidTransition),
		errors.Is(err, appointment.ErrAlreadyCancelled),
		errors.Is(err, appointment.ErrCancelCompleted),
		errors.Is(err, appointment.ErrDeleteRequiresCancel):
		return http.StatusBadRequest
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrNotFound:
			return http.StatusNotFound
		case apperrors.ErrBadRequest:
			return http.StatusBadRequest
		case apperrors.ErrUnauthorized:
			return http.StatusUnauthorized
		case apperrors.ErrForbidden:
			return http.StatusForbidden
		case apperrors.ErrConflict:
			return http.StatusConflict
		case apperrors.ErrUnavailable:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

// AbortWithError writes the mapped error response. Internal errors are not
// echoed to clients.
func AbortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		// Show the client-facing message, not the wrapped cause.
		msg = appErr.Message
	}
	if status == http.StatusInternalServerError {
		msg = "internal server error"
		_ = c.Error(err)
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, NewErrorResponse(msg))
}
