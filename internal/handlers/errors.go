package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"wallet_api/internal/models"
	"wallet_api/internal/repository"
	"wallet_api/internal/service"

	"github.com/gin-gonic/gin"
)

func statusName(code int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
}

func abortWithError(c *gin.Context, code int, message, hint string) {
	c.AbortWithStatusJSON(code, models.APIError{
		Status:  statusName(code),
		Message: message,
		Hint:    hint,
	})
}

// writeServiceError maps an engine error onto a response. Internal details
// of unexpected errors are logged, never returned.
func (h *WalletHTTPHandler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrWalletNotFound):
		abortWithError(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, repository.ErrInsufficientFunds):
		abortWithError(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, repository.ErrInvalidAmount), errors.Is(err, service.ErrUnsupportedOperation):
		abortWithError(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		_ = c.Error(err)
		abortWithError(c, http.StatusServiceUnavailable, "wallet is busy, try again later", "")
	default:
		_ = c.Error(err)
		h.logger.Error("Wallet request failed",
			slog.String("path", c.FullPath()),
			slog.Any("err", err),
		)
		abortWithError(c, http.StatusInternalServerError, "internal server error", "")
	}
}
