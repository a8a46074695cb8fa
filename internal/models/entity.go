package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID      uuid.UUID       `db:"id" json:"walletId"`
	Balance decimal.Decimal `db:"balance" json:"balance"`
}

// OperationType is the closed set of balance mutations.
type OperationType string

const (
	OperationDeposit  OperationType = "DEPOSIT"
	OperationWithdraw OperationType = "WITHDRAW"
)

func (t OperationType) Valid() bool {
	switch t {
	case OperationDeposit, OperationWithdraw:
		return true
	}
	return false
}
