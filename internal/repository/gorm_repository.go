package repository

import (
	"context"
	"errors"
	"log/slog"

	"wallet_api/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRecord struct {
	ID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Balance decimal.Decimal `gorm:"type:numeric;not null;default:0"`
}

func (walletRecord) TableName() string { return "wallets" }

func (w walletRecord) toModel() models.Wallet {
	return models.Wallet{ID: w.ID, Balance: w.Balance}
}

// WalletGormRepository is the wallet store on top of gorm. Row locks come
// from SELECT ... FOR UPDATE on dialects that support it.
type WalletGormRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewWalletGormRepository(db *gorm.DB, logger *slog.Logger) *WalletGormRepository {
	return &WalletGormRepository{db: db, logger: logger}
}

func (r *WalletGormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&walletRecord{})
}

func (r *WalletGormRepository) Find(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	var rec walletRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", walletID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Wallet{}, ErrWalletNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get wallet",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
		return models.Wallet{}, err
	}
	return rec.toModel(), nil
}

func (r *WalletGormRepository) Create(ctx context.Context, wallet models.Wallet) error {
	if wallet.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&walletRecord{}).Where("id = ?", wallet.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrWalletAlreadyExist
		}
		return tx.Create(&walletRecord{ID: wallet.ID, Balance: wallet.Balance}).Error
	})
	if err != nil && !errors.Is(err, ErrWalletAlreadyExist) {
		r.logger.Error("Failed to create wallet",
			slog.String("wallet_id", wallet.ID.String()),
			slog.Any("err", err),
		)
	}
	return err
}

func (r *WalletGormRepository) WithinTx(ctx context.Context, fn TxFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormWalletTx{db: tx, logger: r.logger, locked: make(map[uuid.UUID]struct{})})
	})
}

type gormWalletTx struct {
	db     *gorm.DB
	logger *slog.Logger
	locked map[uuid.UUID]struct{}
}

func (t *gormWalletTx) FindForUpdate(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	var rec walletRecord
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rec, "id = ?", walletID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
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
	return rec.toModel(), nil
}

func (t *gormWalletTx) Save(ctx context.Context, wallet models.Wallet) (models.Wallet, error) {
	if _, ok := t.locked[wallet.ID]; !ok {
		return models.Wallet{}, ErrWalletNotLocked
	}
	if wallet.Balance.IsNegative() {
		return models.Wallet{}, ErrNegativeBalance
	}
	rec := walletRecord{ID: wallet.ID, Balance: wallet.Balance}
	if err := t.db.WithContext(ctx).Save(&rec).Error; err != nil {
		t.logger.Error("Failed to update wallet balance",
			slog.String("wallet_id", wallet.ID.String()),
			slog.Any("err", err),
		)
		return models.Wallet{}, err
	}
	return rec.toModel(), nil
}
