// Command reconcile runs one reconciliation pass against the ledger store
// and exits non-zero when the ledger disagrees with itself.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"tourneypay/internal/config"
	"tourneypay/internal/logger"
	"tourneypay/internal/repositories"
	"tourneypay/internal/services/reconcile"

	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()

	cfg := reconcile.LoadConfig()
	flag.DurationVar(&cfg.PendingAfter, "pending-after", cfg.PendingAfter, "fail pending transactions older than this")
	flag.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "wallets verified per batch")
	flag.Parse()

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := repositories.InitDB(log)
	if err != nil {
		log.Fatal("failed to open ledger store", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	r := reconcile.NewReconciler(
		repositories.NewWalletRepository(db),
		repositories.NewTransactionRepository(db),
		cfg,
		log,
	)
	report, err := r.Run(context.Background())
	if err != nil {
		log.Fatal("reconciliation failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Error("failed to write report", zap.Error(err))
	}
	if !report.OK() {
		_ = log.Sync()
		os.Exit(1)
	}
}
