package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wallet_api/internal/models"
	"wallet_api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrUnsupportedOperation = errors.New("unsupported operation type")

//go:generate mockgen -source=service.go -destination=../mocks/mock_wallet_store.go -package=mocks WalletStore

type WalletStore interface {
	Find(ctx context.Context, walletID uuid.UUID) (models.Wallet, error)
	WithinTx(ctx context.Context, fn repository.TxFunc) error
}

// WalletService applies balance operations. Per-wallet serialization comes
// entirely from the store's FindForUpdate; the service holds no locks.
type WalletService struct {
	store  WalletStore
	logger *slog.Logger
}

func NewWalletService(store WalletStore, logger *slog.Logger) *WalletService {
	return &WalletService{
		store:  store,
		logger: logger,
	}
}

func (s *WalletService) GetWallet(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	wallet, err := s.store.Find(ctx, walletID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return models.Wallet{}, notFound(walletID)
		}
		return models.Wallet{}, err
	}
	return wallet, nil
}

// ApplyOperation runs read-validate-mutate-persist for one wallet as a single
// unit of work. A rejected withdrawal writes nothing.
func (s *WalletService) ApplyOperation(
	ctx context.Context,
	walletID uuid.UUID,
	opType models.OperationType,
	amount decimal.Decimal,
) (models.Wallet, error) {
	if !amount.IsPositive() {
		return models.Wallet{}, repository.ErrInvalidAmount
	}
	if !opType.Valid() {
		return models.Wallet{}, fmt.Errorf("%w: %q", ErrUnsupportedOperation, opType)
	}

	var result models.Wallet
	err := s.store.WithinTx(ctx, func(tx repository.WalletTx) error {
		wallet, err := tx.FindForUpdate(ctx, walletID)
		if err != nil {
			if errors.Is(err, repository.ErrWalletNotFound) {
				return notFound(walletID)
			}
			return err
		}

		switch opType {
		case models.OperationDeposit:
			wallet.Balance = wallet.Balance.Add(amount)
		case models.OperationWithdraw:
			if wallet.Balance.LessThan(amount) {
				return fmt.Errorf("wallet with ID %s cannot withdraw %s: %w", walletID, amount, repository.ErrInsufficientFunds)
			}
			wallet.Balance = wallet.Balance.Sub(amount)
		default:
			return fmt.Errorf("%w: %q", ErrUnsupportedOperation, opType)
		}

		result, err = tx.Save(ctx, wallet)
		return err
	})
	if err != nil {
		return models.Wallet{}, err
	}

	s.logger.Debug("Balance updated",
		slog.String("wallet_id", walletID.String()),
		slog.String("operation", string(opType)),
		slog.String("amount", amount.String()),
		slog.String("balance", result.Balance.String()),
	)
	return result, nil
}

func notFound(walletID uuid.UUID) error {
	return fmt.Errorf("wallet with ID %s is not found: %w", walletID, repository.ErrWalletNotFound)
}
