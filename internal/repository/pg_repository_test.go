package repository_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"wallet_api/internal/models"
	"wallet_api/internal/repository"
	"wallet_api/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestPG_FindAndCreate(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)
	walletID := uuid.New()

	_, err := repo.Find(context.Background(), walletID)
	assert.ErrorIs(t, err, repository.ErrWalletNotFound)

	require.NoError(t, repo.Create(context.Background(), models.Wallet{ID: walletID, Balance: decimal.RequireFromString("100.99")}))
	err = repo.Create(context.Background(), models.Wallet{ID: walletID})
	assert.ErrorIs(t, err, repository.ErrWalletAlreadyExist)

	w, err := repo.Find(context.Background(), walletID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("100.99")))
}

func TestPG_TxSaveAndRollback(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)
	walletID := uuid.New()
	require.NoError(t, repo.Create(context.Background(), models.Wallet{ID: walletID, Balance: decimal.NewFromInt(10)}))

	// Saved inside a failed unit of work: must not be visible afterwards.
	err := repo.WithinTx(context.Background(), func(tx repository.WalletTx) error {
		w, err := tx.FindForUpdate(context.Background(), walletID)
		if err != nil {
			return err
		}
		w.Balance = decimal.NewFromInt(999)
		if _, err := tx.Save(context.Background(), w); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	w, err := repo.Find(context.Background(), walletID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(10)))

	err = repo.WithinTx(context.Background(), func(tx repository.WalletTx) error {
		w, err := tx.FindForUpdate(context.Background(), walletID)
		if err != nil {
			return err
		}
		w.Balance = decimal.RequireFromString("10.000000000000000001")
		_, err = tx.Save(context.Background(), w)
		return err
	})
	require.NoError(t, err)

	w, err = repo.Find(context.Background(), walletID)
	require.NoError(t, err)
	assert.Equal(t, "10.000000000000000001", w.Balance.String())
}

func TestPG_SaveRequiresLock(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)
	walletID := uuid.New()
	require.NoError(t, repo.Create(context.Background(), models.Wallet{ID: walletID}))

	err := repo.WithinTx(context.Background(), func(tx repository.WalletTx) error {
		_, err := tx.Save(context.Background(), models.Wallet{ID: walletID, Balance: decimal.NewFromInt(1)})
		return err
	})
	assert.ErrorIs(t, err, repository.ErrWalletNotLocked)

	err = repo.WithinTx(context.Background(), func(tx repository.WalletTx) error {
		w, err := tx.FindForUpdate(context.Background(), walletID)
		if err != nil {
			return err
		}
		w.Balance = decimal.NewFromInt(-1)
		_, err = tx.Save(context.Background(), w)
		return err
	})
	assert.ErrorIs(t, err, repository.ErrNegativeBalance)
}

func TestPG_FindForUpdateBlocksWritersNotReaders(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)
	walletID := uuid.New()
	require.NoError(t, repo.Create(context.Background(), models.Wallet{ID: walletID, Balance: decimal.NewFromInt(5)}))

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = repo.WithinTx(context.Background(), func(tx repository.WalletTx) error {
			if _, err := tx.FindForUpdate(context.Background(), walletID); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	w, err := repo.Find(context.Background(), walletID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(5)))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err = repo.WithinTx(ctx, func(tx repository.WalletTx) error {
		_, err := tx.FindForUpdate(ctx, walletID)
		return err
	})
	assert.Error(t, err)
}

func TestPG_ConcurrentTransactions(t *testing.T) {
	pool, teardown := testutil.SetupTestDB(t)
	defer teardown()
	repo := repository.NewWalletPGRepository(pool, testLogger)
	walletID := uuid.New()
	require.NoError(t, repo.Create(context.Background(), models.Wallet{ID: walletID}))

	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.WithinTx(context.Background(), func(tx repository.WalletTx) error {
				w, err := tx.FindForUpdate(context.Background(), walletID)
				if err != nil {
					return err
				}
				w.Balance = w.Balance.Add(decimal.NewFromInt(1))
				_, err = tx.Save(context.Background(), w)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	w, err := repo.Find(context.Background(), walletID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(500)))
}
