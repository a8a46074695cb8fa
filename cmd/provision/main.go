package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"wallet_api/internal/app"
	"wallet_api/internal/config"
	"wallet_api/internal/logging"
	"wallet_api/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// provision creates a wallet in the configured store. The balance API never
// creates wallets, so this is how operators seed them.
func main() {
	balance := flag.String("balance", "0", "opening balance")
	id := flag.String("id", "", "wallet id, generated when empty")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	if cfg.StoreBackend == config.BackendMemory {
		log.Fatal("memory backend keeps no state between processes")
	}

	wallet, err := buildWallet(*id, *balance)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.SetupLogger(cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open wallet store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := store.Create(ctx, wallet); err != nil {
		logger.Error("failed to create wallet", "wallet_id", wallet.ID.String(), "err", err)
		closeStore()
		os.Exit(1)
	}
	fmt.Println(wallet.ID)
}

func buildWallet(id, balance string) (models.Wallet, error) {
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return models.Wallet{}, fmt.Errorf("invalid balance %q: %w", balance, err)
	}
	if amount.IsNegative() {
		return models.Wallet{}, fmt.Errorf("balance must not be negative")
	}

	walletID := uuid.New()
	if id != "" {
		if walletID, err = uuid.Parse(id); err != nil {
			return models.Wallet{}, fmt.Errorf("invalid id %q: %w", id, err)
		}
	}
	return models.Wallet{ID: walletID, Balance: amount}, nil
}
