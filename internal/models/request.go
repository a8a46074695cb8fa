package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletRequest struct {
	WalletID      uuid.UUID       `json:"walletId" binding:"required"`
	OperationType OperationType   `json:"operationType" binding:"required,oneof=DEPOSIT WITHDRAW"`
	Amount        decimal.Decimal `json:"amount" binding:"dmin=0.01"`
}

type WalletResponse struct {
	WalletID uuid.UUID       `json:"walletId"`
	Balance  decimal.Decimal `json:"balance"`
}

func NewWalletResponse(w Wallet) WalletResponse {
	return WalletResponse{WalletID: w.ID, Balance: w.Balance}
}

// APIError is the body of every non-2xx response. Status is the upper snake
// case name of the HTTP status, e.g. NOT_FOUND.
type APIError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}
