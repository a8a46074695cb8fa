package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet_api/internal/handlers"
	"wallet_api/internal/mocks"
	"wallet_api/internal/models"
	"wallet_api/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRouter(t *testing.T, txTimeout time.Duration) (*gin.Engine, *mocks.MockWalletService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockWalletService(ctrl)
	handler := handlers.NewWalletHTTPHandler(mockService, testLogger, txTimeout, 3)
	r := gin.New()
	handler.RegisterRoutes(r)
	return r, mockService
}

func postOperation(r *gin.Engine, body any) *httptest.ResponseRecorder {
	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(b)
	}
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/wallet", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

func TestHandleWalletOperation_Deposit_Success(t *testing.T) {
	r, mockService := newRouter(t, time.Second)
	walletID := uuid.New()
	mockService.EXPECT().
		ApplyOperation(gomock.Any(), walletID, models.OperationDeposit, decimal.NewFromInt(100)).
		Return(models.Wallet{ID: walletID, Balance: decimal.NewFromInt(200)}, nil)

	w := postOperation(r, map[string]interface{}{
		"walletId":      walletID,
		"operationType": "DEPOSIT",
		"amount":        "100",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		WalletID uuid.UUID       `json:"walletId"`
		Balance  decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, walletID, resp.WalletID)
	assert.True(t, resp.Balance.Equal(decimal.NewFromInt(200)))
}

func TestHandleWalletOperation_Withdraw_InsufficientFunds(t *testing.T) {
	r, mockService := newRouter(t, time.Second)
	walletID := uuid.New()
	mockService.EXPECT().
		ApplyOperation(gomock.Any(), walletID, models.OperationWithdraw, decimal.NewFromInt(100)).
		Return(models.Wallet{}, fmt.Errorf("wallet with ID %s cannot withdraw 100: %w", walletID, repository.ErrInsufficientFunds))

	w := postOperation(r, map[string]interface{}{
		"walletId":      walletID,
		"operationType": "WITHDRAW",
		"amount":        "100",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, "BAD_REQUEST", apiErr.Status)
	assert.Contains(t, apiErr.Message, "insufficient funds")
}

func TestHandleWalletOperation_NotFound(t *testing.T) {
	r, mockService := newRouter(t, time.Second)
	walletID := uuid.New()
	mockService.EXPECT().
		ApplyOperation(gomock.Any(), walletID, models.OperationDeposit, gomock.Any()).
		Return(models.Wallet{}, fmt.Errorf("wallet with ID %s is not found: %w", walletID, repository.ErrWalletNotFound))

	w := postOperation(r, map[string]interface{}{
		"walletId":      walletID,
		"operationType": "DEPOSIT",
		"amount":        "1",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, "NOT_FOUND", apiErr.Status)
	assert.Contains(t, apiErr.Message, walletID.String())
}

func TestHandleWalletOperation_InvalidRequest(t *testing.T) {
	r, _ := newRouter(t, time.Second)
	walletID := uuid.New().String()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad uuid", `{"walletId": "not-a-uuid", "operationType": "DEPOSIT", "amount": "100"}`, "Request validation failed"},
		{"malformed json", `{"walletId": `, "Request validation failed"},
		{"unknown operation", `{"walletId": "` + walletID + `", "operationType": "TRANSFER", "amount": "1"}`, "operationType"},
		{"missing operation", `{"walletId": "` + walletID + `", "amount": "1"}`, "Field 'operationType' is required"},
		{"zero amount", `{"walletId": "` + walletID + `", "operationType": "DEPOSIT", "amount": "0"}`, "Field 'amount' must be at least 0.01"},
		{"negative amount", `{"walletId": "` + walletID + `", "operationType": "WITHDRAW", "amount": "-5"}`, "amount"},
		{"below minimum", `{"walletId": "` + walletID + `", "operationType": "DEPOSIT", "amount": "0.009"}`, "amount"},
		{"missing amount", `{"walletId": "` + walletID + `", "operationType": "DEPOSIT"}`, "amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postOperation(r, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			apiErr := decodeError(t, w)
			assert.Equal(t, "BAD_REQUEST", apiErr.Status)
			assert.Contains(t, apiErr.Message, tc.want)
		})
	}
}

func TestHandleWalletOperation_RetriesLockConflicts(t *testing.T) {
	r, mockService := newRouter(t, time.Second)
	walletID := uuid.New()
	gomock.InOrder(
		mockService.EXPECT().
			ApplyOperation(gomock.Any(), walletID, models.OperationWithdraw, gomock.Any()).
			Return(models.Wallet{}, &pgconn.PgError{Code: "40P01"}),
		mockService.EXPECT().
			ApplyOperation(gomock.Any(), walletID, models.OperationWithdraw, gomock.Any()).
			Return(models.Wallet{ID: walletID, Balance: decimal.NewFromInt(5)}, nil),
	)

	w := postOperation(r, map[string]interface{}{
		"walletId":      walletID,
		"operationType": "WITHDRAW",
		"amount":        "5",
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleWalletOperation_RetriesExhausted(t *testing.T) {
	r, mockService := newRouter(t, time.Second)
	walletID := uuid.New()
	mockService.EXPECT().
		ApplyOperation(gomock.Any(), walletID, models.OperationDeposit, gomock.Any()).
		Return(models.Wallet{}, &pgconn.PgError{Code: "40001", Message: "could not serialize access"}).
		Times(3)

	w := postOperation(r, map[string]interface{}{
		"walletId":      walletID,
		"operationType": "DEPOSIT",
		"amount":        "5",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", apiErr.Status)
	assert.Equal(t, "internal server error", apiErr.Message)
}

func TestHandleWalletOperation_Timeout(t *testing.T) {
	r, mockService := newRouter(t, 20*time.Millisecond)
	walletID := uuid.New()
	mockService.EXPECT().
		ApplyOperation(gomock.Any(), walletID, models.OperationDeposit, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ uuid.UUID, _ models.OperationType, _ decimal.Decimal) (models.Wallet, error) {
			<-ctx.Done()
			return models.Wallet{}, ctx.Err()
		})

	w := postOperation(r, map[string]interface{}{
		"walletId":      walletID,
		"operationType": "DEPOSIT",
		"amount":        "5",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, w).Status)
}

func TestHandleGetBalance_Success(t *testing.T) {
	r, mockService := newRouter(t, time.Second)
	walletID := uuid.New()
	mockService.EXPECT().
		GetWallet(gomock.Any(), walletID).
		Return(models.Wallet{ID: walletID, Balance: decimal.NewFromInt(500)}, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallets/"+walletID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":"500"`)
	assert.Contains(t, w.Body.String(), walletID.String())
}

func TestHandleGetBalance_NotFound(t *testing.T) {
	r, mockService := newRouter(t, time.Second)
	walletID := uuid.New()
	mockService.EXPECT().
		GetWallet(gomock.Any(), walletID).
		Return(models.Wallet{}, repository.ErrWalletNotFound)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallets/"+walletID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "wallet not found")
}

func TestHandleGetBalance_InvalidUUID(t *testing.T) {
	r, _ := newRouter(t, time.Second)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallets/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid wallet_id")
}

func TestHandleGetBalance_UnexpectedErrorIsHidden(t *testing.T) {
	r, mockService := newRouter(t, time.Second)
	walletID := uuid.New()
	mockService.EXPECT().
		GetWallet(gomock.Any(), walletID).
		Return(models.Wallet{}, fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused"))

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallets/"+walletID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newRouter(t, time.Second)

	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
