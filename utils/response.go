package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perchsocial/perch/store"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// FromError maps the store error taxonomy onto HTTP statuses. Domain errors
// carry caller-safe messages; store and unknown failures are reported
// generically so internal detail never leaks.
func FromError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, store.ErrForbidden):
		Error(ctx, http.StatusForbidden, 40301, err.Error())
	case errors.Is(err, store.ErrNotFound):
		Error(ctx, http.StatusNotFound, 40401, err.Error())
	case errors.Is(err, store.ErrUpstreamFailure):
		Error(ctx, http.StatusBadGateway, 50201, "media service unavailable")
	default:
		if Sugar != nil {
			Sugar.Errorw("request failed", "err", err)
		}
		Error(ctx, http.StatusInternalServerError, 50001, "internal error")
	}
}
