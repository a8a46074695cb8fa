package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wallet_api/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

type WalletPGRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewWalletPGRepository(pool *pgxpool.Pool, logger *slog.Logger) *WalletPGRepository {
	return &WalletPGRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *WalletPGRepository) Find(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	var w models.Wallet
	err := r.pool.QueryRow(ctx, "SELECT id, balance FROM wallets WHERE id = $1", walletID).Scan(&w.ID, &w.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, ErrWalletNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get wallet",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return models.Wallet{}, err
	}
	return w, nil
}

// WithinTx runs fn in a READ COMMITTED transaction. Row locks taken by
// FindForUpdate are released by the commit or by the deferred rollback.
func (r *WalletPGRepository) WithinTx(ctx context.Context, fn TxFunc) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		r.logger.Error("Failed to begin transaction", slog.Any("err", err))
		return err
	}
	defer func() {
		// ctx may already be cancelled; the rollback still has to reach the server.
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.Error("Failed to rollback transaction", slog.Any("err", err))
		}
	}()

	if err := fn(&pgWalletTx{tx: tx, logger: r.logger, locked: make(map[uuid.UUID]struct{})}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("Failed to commit transaction", slog.Any("err", err))
		return err
	}
	return nil
}

func (r *WalletPGRepository) Create(ctx context.Context, wallet models.Wallet) error {
	if wallet.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	_, err := r.pool.Exec(ctx, "INSERT INTO wallets (id, balance) VALUES ($1, $2)", wallet.ID, wallet.Balance)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrWalletAlreadyExist
		}
		r.logger.Error("Failed to create wallet",
			slog.String("wallet_id", wallet.ID.String()),
			slog.Any("err", err),
		)
		return err
	}
	return nil
}

type pgWalletTx struct {
	tx     pgx.Tx
	logger *slog.Logger
	locked map[uuid.UUID]struct{}
}

func (t *pgWalletTx) FindForUpdate(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	var w models.Wallet
	err := t.tx.QueryRow(ctx, "SELECT id, balance FROM wallets WHERE id = $1 FOR UPDATE", walletID).Scan(&w.ID, &w.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, ErrWalletNotFound
	}
	if err != nil {
		t.logger.Error("Failed to select wallet for update",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return models.Wallet{}, err
	}
	t.locked[walletID] = struct{}{}
	return w, nil
}

func (t *pgWalletTx) Save(ctx context.Context, wallet models.Wallet) (models.Wallet, error) {
	if _, ok := t.locked[wallet.ID]; !ok {
		return models.Wallet{}, ErrWalletNotLocked
	}
	if wallet.Balance.IsNegative() {
		return models.Wallet{}, ErrNegativeBalance
	}

	var saved models.Wallet
	err := t.tx.QueryRow(ctx, `
		INSERT INTO wallets (id, balance) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance
		RETURNING id, balance`, wallet.ID, wallet.Balance).Scan(&saved.ID, &saved.Balance)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			return models.Wallet{}, fmt.Errorf("%w: %s", ErrNegativeBalance, pgErr.Message)
		}
		t.logger.Error("Failed to update wallet balance",
			slog.String("wallet_id", wallet.ID.String()),
			slog.Any("err", err),
		)
		return models.Wallet{}, err
	}
	return saved, nil
}
