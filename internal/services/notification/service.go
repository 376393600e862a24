// Package notification publishes ledger events on Redis pub/sub so other
// services (tournament UI, receipts) can react to balance changes.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tourneypay/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	TransactionEventsChannel = "wallet_transaction_events"

	EventTransactionCompleted = "transaction.completed"
	EventTransactionFailed    = "transaction.failed"
	EventWalletStatusChanged  = "wallet.status_changed"
)

type TransactionEvent struct {
	EventType       string                 `json:"event_type"`
	UserID          uint                   `json:"user_id"`
	WalletID        uint                   `json:"wallet_id"`
	ReferenceCode   string                 `json:"reference_code,omitempty"`
	CorrelationCode string                 `json:"correlation_code,omitempty"`
	TransactionID   uint                   `json:"transaction_id,omitempty"`
	TransactionType string                 `json:"transaction_type,omitempty"`
	Status          string                 `json:"status"`
	Amount          int64                  `json:"amount"`
	Fee             int64                  `json:"fee,omitempty"`
	BalanceAfter    int64                  `json:"balance_after"`
	ErrorKind       string                 `json:"error_kind,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// Service publishes events. A nil client turns publishing into a no-op so the
// ledger keeps working without Redis.
type Service struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewService creates a new notification service.
func NewService(rdb *redis.Client, log *zap.Logger) *Service {
	return &Service{rdb: rdb, log: log}
}

// NewTransactionEvent describes one ledger row as an event.
func NewTransactionEvent(tx *models.Transaction) *TransactionEvent {
	eventType := EventTransactionCompleted
	if tx.Status != models.TransactionStatusCompleted {
		eventType = EventTransactionFailed
	}
	return &TransactionEvent{
		EventType:       eventType,
		UserID:          tx.UserID,
		WalletID:        tx.WalletID,
		ReferenceCode:   tx.ReferenceCode,
		CorrelationCode: tx.CorrelationCode,
		TransactionID:   tx.ID,
		TransactionType: tx.Type,
		Status:          tx.Status,
		Amount:          tx.Amount,
		Fee:             tx.Fee,
		BalanceAfter:    tx.BalanceAfter,
		ErrorKind:       tx.FailureReason,
	}
}

// Publish sends an event to the transaction channel.
func (s *Service) Publish(ctx context.Context, event *TransactionEvent) error {
	if s.rdb == nil {
		return nil
	}
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.rdb.Publish(ctx, TransactionEventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	s.log.Debug("event published",
		zap.String("event", event.EventType),
		zap.Uint("user_id", event.UserID),
		zap.String("reference", event.ReferenceCode),
	)
	return nil
}

// PublishTransaction announces a committed or failed ledger row.
func (s *Service) PublishTransaction(ctx context.Context, tx *models.Transaction) error {
	return s.Publish(ctx, NewTransactionEvent(tx))
}

// PublishWalletStatus announces a freeze or unfreeze.
func (s *Service) PublishWalletStatus(ctx context.Context, wallet *models.Wallet) error {
	return s.Publish(ctx, &TransactionEvent{
		EventType:    EventWalletStatusChanged,
		UserID:       wallet.UserID,
		WalletID:     wallet.ID,
		Status:       wallet.Status,
		BalanceAfter: wallet.Balance,
		Metadata:     map[string]interface{}{"reason": wallet.StatusReason},
	})
}
