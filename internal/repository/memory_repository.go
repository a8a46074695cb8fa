package repository

import (
	"context"
	"sync"

	"wallet_api/internal/models"

	"github.com/google/uuid"
)

// WalletMemoryRepository keeps wallets in process memory. Exclusive access is
// a per-wallet lease, so transactions on different wallets never contend.
type WalletMemoryRepository struct {
	mu      sync.RWMutex
	storage map[uuid.UUID]models.Wallet

	leasesMu sync.Mutex
	leases   map[uuid.UUID]*lease
}

// lease is a one-slot semaphore. refs counts holders and waiters so an idle
// lease can be dropped from the table.
type lease struct {
	slot chan struct{}
	refs int
}

func NewWalletMemoryRepository() *WalletMemoryRepository {
	return &WalletMemoryRepository{
		storage: make(map[uuid.UUID]models.Wallet),
		leases:  make(map[uuid.UUID]*lease),
	}
}

func (r *WalletMemoryRepository) Find(_ context.Context, walletID uuid.UUID) (models.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.storage[walletID]
	if !ok {
		return models.Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (r *WalletMemoryRepository) Create(_ context.Context, wallet models.Wallet) error {
	if wallet.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[wallet.ID]; exists {
		return ErrWalletAlreadyExist
	}
	r.storage[wallet.ID] = wallet
	return nil
}

func (r *WalletMemoryRepository) WithinTx(ctx context.Context, fn TxFunc) error {
	tx := &memoryWalletTx{
		repo:    r,
		held:    make(map[uuid.UUID]struct{}),
		pending: make(map[uuid.UUID]models.Wallet),
	}
	defer tx.releaseAll()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	for id, w := range tx.pending {
		r.storage[id] = w
	}
	r.mu.Unlock()
	return nil
}

func (r *WalletMemoryRepository) acquire(ctx context.Context, walletID uuid.UUID) error {
	r.leasesMu.Lock()
	l, ok := r.leases[walletID]
	if !ok {
		l = &lease{slot: make(chan struct{}, 1)}
		r.leases[walletID] = l
	}
	l.refs++
	r.leasesMu.Unlock()

	select {
	case l.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		r.unref(walletID, l)
		return ctx.Err()
	}
}

func (r *WalletMemoryRepository) release(walletID uuid.UUID) {
	r.leasesMu.Lock()
	l := r.leases[walletID]
	r.leasesMu.Unlock()

	<-l.slot
	r.unref(walletID, l)
}

func (r *WalletMemoryRepository) unref(walletID uuid.UUID, l *lease) {
	r.leasesMu.Lock()
	defer r.leasesMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(r.leases, walletID)
	}
}

type memoryWalletTx struct {
	repo    *WalletMemoryRepository
	held    map[uuid.UUID]struct{}
	pending map[uuid.UUID]models.Wallet
}

func (t *memoryWalletTx) FindForUpdate(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	if _, ok := t.held[walletID]; !ok {
		if err := t.repo.acquire(ctx, walletID); err != nil {
			return models.Wallet{}, err
		}
		t.held[walletID] = struct{}{}
	}

	if w, ok := t.pending[walletID]; ok {
		return w, nil
	}
	w, err := t.repo.Find(ctx, walletID)
	if err != nil {
		t.repo.release(walletID)
		delete(t.held, walletID)
		return models.Wallet{}, err
	}
	return w, nil
}

func (t *memoryWalletTx) Save(_ context.Context, wallet models.Wallet) (models.Wallet, error) {
	if _, ok := t.held[wallet.ID]; !ok {
		return models.Wallet{}, ErrWalletNotLocked
	}
	if wallet.Balance.IsNegative() {
		return models.Wallet{}, ErrNegativeBalance
	}
	t.pending[wallet.ID] = wallet
	return wallet, nil
}

func (t *memoryWalletTx) releaseAll() {
	for id := range t.held {
		t.repo.release(id)
	}
}
