package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/agilpa/solicitation-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
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

// Error writes an AppError with the HTTP status its code maps to, so
// actors get a specific, actionable message (which task blocks, which
// status is required first).
func Error(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrBadRequest:
		status = http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrIllegalTransition, apperrors.ErrNotReadyForArchive, apperrors.ErrSignatureGateOpen:
		status = http.StatusUnprocessableEntity
	case apperrors.ErrStaleState, apperrors.ErrAlreadyResolved:
		status = http.StatusConflict
	case apperrors.ErrTransientStore, apperrors.ErrTransientTransport:
		status = http.StatusServiceUnavailable
	}

	body := gin.H{"status": "error", "message": appErr.Message, "code": appErr.Code}
	if len(appErr.BlockingTasks) > 0 {
		body["blocking_tasks"] = appErr.BlockingTasks
	}
	c.JSON(status, body)
}
