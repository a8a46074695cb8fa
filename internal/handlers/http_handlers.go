package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"wallet_api/internal/metrics"
	"wallet_api/internal/models"
	"wallet_api/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=http_handlers.go -destination=../mocks/mock_wallet_service.go -package=mocks WalletService

type WalletService interface {
	GetWallet(ctx context.Context, walletID uuid.UUID) (models.Wallet, error)
	ApplyOperation(ctx context.Context, walletID uuid.UUID, opType models.OperationType, amount decimal.Decimal) (models.Wallet, error)
}

type WalletHTTPHandler struct {
	service    WalletService
	logger     *slog.Logger
	txTimeout  time.Duration
	maxRetries int
}

// NewWalletHTTPHandler builds the handler. txTimeout bounds every mutation,
// zero disables the bound. maxRetries below one is treated as one attempt.
func NewWalletHTTPHandler(service WalletService, logger *slog.Logger, txTimeout time.Duration, maxRetries int) *WalletHTTPHandler {
	registerValidators()
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &WalletHTTPHandler{
		service:    service,
		logger:     logger,
		txTimeout:  txTimeout,
		maxRetries: maxRetries,
	}
}

func (h *WalletHTTPHandler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/wallet", h.HandleWalletOperation)
		v1.GET("/wallets/:wallet_id", h.HandleGetBalance)
	}
	r.GET("/healthz", h.HandleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *WalletHTTPHandler) HandleWalletOperation(c *gin.Context) {
	var req models.WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err), "")
		return
	}

	ctx := c.Request.Context()
	if h.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.txTimeout)
		defer cancel()
	}

	var wallet models.Wallet
	err := retry(ctx, h.logger, h.maxRetries, func() error {
		var err error
		wallet, err = h.service.ApplyOperation(ctx, req.WalletID, req.OperationType, req.Amount)
		return err
	})
	metrics.RecordOperation(string(req.OperationType), operationResult(err))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewWalletResponse(wallet))
}

func (h *WalletHTTPHandler) HandleGetBalance(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("wallet_id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid wallet_id", "wallet_id must be a UUID")
		return
	}
	wallet, err := h.service.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewWalletResponse(wallet))
}

func (h *WalletHTTPHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func operationResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, repository.ErrWalletNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, repository.ErrInsufficientFunds):
		return metrics.ResultInsufficientFunds
	default:
		return metrics.ResultError
	}
}
