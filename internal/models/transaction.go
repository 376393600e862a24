package models

import (
	"time"
)

// Transaction types
const (
	TransactionTypeDeposit          = "deposit"
	TransactionTypeWithdrawal       = "withdrawal"
	TransactionTypeTransferOut      = "transfer_out"
	TransactionTypeTransferIn       = "transfer_in"
	TransactionTypeDonation         = "donation"
	TransactionTypeDonationReceived = "donation_received"
)

// Transaction statuses
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
)

// Related entity types
const (
	EntityTypeUser       = "user"
	EntityTypeTeam       = "team"
	EntityTypeTournament = "tournament"
)

// Transaction is one immutable ledger row. Amount is signed: credits are
// positive and debits negative, with any fee included in the debit.
type Transaction struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	WalletID          uint      `gorm:"index;not null" json:"wallet_id"`
	UserID            uint      `gorm:"index;not null" json:"user_id"`
	Type              string    `gorm:"index;not null" json:"type"`
	Amount            int64     `gorm:"not null" json:"amount"`
	Fee               int64     `gorm:"not null;default:0" json:"fee"`
	BalanceAfter      int64     `gorm:"not null" json:"balance_after"`
	Status            string    `gorm:"index;not null;default:'pending'" json:"status"`
	ReferenceCode     string    `gorm:"index:idx_transactions_reference_completed,unique,where:status = 'completed';not null" json:"reference_code"`
	CorrelationCode   string    `gorm:"index" json:"correlation_code"`
	RelatedEntityType string    `json:"related_entity_type,omitempty"`
	RelatedEntityID   *uint     `json:"related_entity_id,omitempty"`
	FailureReason     string    `json:"failure_reason,omitempty"`
	Note              string    `json:"note,omitempty"`
	Metadata          JSON      `json:"metadata,omitempty"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

// IsCredit reports whether the transaction type adds funds to its wallet.
func IsCredit(txType string) bool {
	switch txType {
	case TransactionTypeDeposit, TransactionTypeTransferIn, TransactionTypeDonationReceived:
		return true
	}
	return false
}

// ValidType reports whether txType is a known transaction type.
func ValidType(txType string) bool {
	switch txType {
	case TransactionTypeDeposit, TransactionTypeWithdrawal,
		TransactionTypeTransferOut, TransactionTypeTransferIn,
		TransactionTypeDonation, TransactionTypeDonationReceived:
		return true
	}
	return false
}

// SignMatchesType checks that the amount direction agrees with the type.
func (t *Transaction) SignMatchesType() bool {
	if IsCredit(t.Type) {
		return t.Amount > 0
	}
	return t.Amount < 0
}

// Principal returns the amount moved excluding fees, always non-negative.
func (t *Transaction) Principal() int64 {
	if t.Amount < 0 {
		return -t.Amount - t.Fee
	}
	return t.Amount
}
