package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"wallet_api/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const walletCachePrefix = "wallet:v1:"

// Store is what CachedWalletStore wraps: any of the wallet repositories.
type Store interface {
	Find(ctx context.Context, walletID uuid.UUID) (models.Wallet, error)
	WithinTx(ctx context.Context, fn TxFunc) error
	Create(ctx context.Context, wallet models.Wallet) error
}

// CachedWalletStore serves Find from redis and evicts every wallet saved by a
// committed transaction. A snapshot can be at most ttl old. Redis failures are
// logged and never fail the call.
type CachedWalletStore struct {
	inner  Store
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedWalletStore(inner Store, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedWalletStore {
	return &CachedWalletStore{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(walletID uuid.UUID) string {
	return walletCachePrefix + walletID.String()
}

func (s *CachedWalletStore) Find(ctx context.Context, walletID uuid.UUID) (models.Wallet, error) {
	cached, err := s.cache.Get(ctx, cacheKey(walletID)).Bytes()
	if err == nil {
		var w models.Wallet
		if err := json.Unmarshal(cached, &w); err == nil {
			return w, nil
		}
		s.logger.Warn("Failed to decode cached wallet", slog.String("wallet_id", walletID.String()))
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("Wallet cache lookup failed",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
	}

	w, err := s.inner.Find(ctx, walletID)
	if err != nil {
		return w, err
	}
	s.put(ctx, w)
	return w, nil
}

func (s *CachedWalletStore) WithinTx(ctx context.Context, fn TxFunc) error {
	var saved []uuid.UUID
	err := s.inner.WithinTx(ctx, func(tx WalletTx) error {
		return fn(&cachedWalletTx{WalletTx: tx, saved: &saved})
	})
	if err != nil {
		return err
	}
	for _, id := range saved {
		s.evict(ctx, id)
	}
	return nil
}

func (s *CachedWalletStore) Create(ctx context.Context, wallet models.Wallet) error {
	if err := s.inner.Create(ctx, wallet); err != nil {
		return err
	}
	s.put(ctx, wallet)
	return nil
}

func (s *CachedWalletStore) put(ctx context.Context, w models.Wallet) {
	payload, err := json.Marshal(w)
	if err == nil {
		err = s.cache.Set(ctx, cacheKey(w.ID), payload, s.ttl).Err()
	}
	if err != nil {
		s.logger.Warn("Failed to cache wallet",
			slog.String("wallet_id", w.ID.String()),
			slog.Any("err", err),
		)
	}
}

func (s *CachedWalletStore) evict(ctx context.Context, walletID uuid.UUID) {
	// The commit already happened; eviction must not be skipped because the
	// request context ended.
	if err := s.cache.Del(context.WithoutCancel(ctx), cacheKey(walletID)).Err(); err != nil {
		s.logger.Error("Failed to evict wallet from cache",
			slog.String("wallet_id", walletID.String()),
			slog.Any("err", err),
		)
	}
}

type cachedWalletTx struct {
	WalletTx
	saved *[]uuid.UUID
}

func (t *cachedWalletTx) Save(ctx context.Context, wallet models.Wallet) (models.Wallet, error) {
	w, err := t.WalletTx.Save(ctx, wallet)
	if err != nil {
		return w, err
	}
	*t.saved = append(*t.saved, w.ID)
	return w, nil
}
