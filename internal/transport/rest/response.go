package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mintlite/invest_tracker/internal/service"
)

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondOk(c *gin.Context, status int, data any) {
	c.JSON(status, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
	})
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "invalid input")
	case errors.Is(err, service.ErrInvalidPrice):
		respondError(c, http.StatusBadRequest, "invalid price")
	case errors.Is(err, service.ErrConflict):
		respondError(c, http.StatusConflict, "concurrent update, retry")
	case errors.Is(err, service.ErrProviderUnavailable):
		respondError(c, http.StatusBadGateway, "market data provider unavailable")
	default:
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}
