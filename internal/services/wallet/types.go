package wallet

import (
	"time"

	"tourneypay/internal/config"
	apperrors "tourneypay/internal/errors"
	"tourneypay/internal/repositories"

	"go.uber.org/zap"
)

// Options carries the optional per-call inputs of a mutating operation.
type Options struct {
	ReferenceCode string
	Note          string
	Metadata      map[string]interface{}
}

// TransactionResult is the definite outcome of a mutating operation.
type TransactionResult struct {
	Success       bool           `json:"success"`
	BalanceAfter  int64          `json:"balance_after"`
	TransactionID uint           `json:"transaction_id,omitempty"`
	ReferenceCode string         `json:"reference_code"`
	Fee           int64          `json:"fee"`
	ErrorKind     apperrors.Kind `json:"error_kind,omitempty"`
	Message       string         `json:"message,omitempty"`
	Replayed      bool           `json:"replayed,omitempty"`
}

// WalletConfig holds configuration for wallet operations
type WalletConfig struct {
	Limits            config.LedgerLimits
	MaxRetries        int
	ProcessingTimeout time.Duration
}

// Dependencies are the collaborators of the engine. Repo, Directory and
// Beneficiaries are required; the rest fall back to no-ops.
type Dependencies struct {
	Repo          repositories.WalletRepository
	Directory     Directory
	Beneficiaries BeneficiaryResolver
	Cache         CacheOperator
	Events        EventPublisher
	Metrics       MetricsCollector
	Logger        *zap.Logger
}

// MetricsCollector defines the interface for collecting wallet metrics
type MetricsCollector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)

	// Cache metrics
	RecordCacheHit(key string)
	RecordCacheMiss(key string)

	// Error metrics
	RecordError(operation, errType string)
	RecordRetry(operation string)

	// Transaction metrics
	RecordTransaction(txType string, amount int64)
}
