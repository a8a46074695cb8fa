package repository

import (
	"context"
	"errors"

	"wallet_api/internal/models"

	"github.com/google/uuid"
)

var (
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrWalletAlreadyExist = errors.New("wallet already exists")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrWalletNotLocked    = errors.New("wallet is not locked by this transaction")
	ErrNegativeBalance    = errors.New("balance must not be negative")
)

//go:generate mockgen -source=store.go -destination=../mocks/mock_wallet_tx.go -package=mocks WalletTx

// WalletTx is the view of the store available inside one unit of work.
// Every wallet returned by FindForUpdate stays exclusively held until the
// enclosing WithinTx returns.
type WalletTx interface {
	FindForUpdate(ctx context.Context, walletID uuid.UUID) (models.Wallet, error)
	Save(ctx context.Context, wallet models.Wallet) (models.Wallet, error)
}

// TxFunc runs inside a unit of work. Returning an error rolls back all writes.
type TxFunc func(tx WalletTx) error
