package models

import (
	"time"
)

// Wallet statuses
const (
	WalletStatusActive = "active"
	WalletStatusFrozen = "frozen"
)

// Wallet holds a user's balance and running totals. Amounts are minor
// currency units. Only the transaction recorder mutates the money fields.
type Wallet struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance        int64     `gorm:"not null;default:0;check:chk_wallets_balance,balance >= 0" json:"balance"`
	TotalReceived  int64     `gorm:"not null;default:0" json:"total_received"`
	TotalWithdrawn int64     `gorm:"not null;default:0" json:"total_withdrawn"`
	Status         string    `gorm:"not null;default:'active'" json:"status"`
	StatusReason   string    `gorm:"default:''" json:"status_reason,omitempty"`
	Version        int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsActive reports whether the wallet accepts mutating operations.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// WalletInfo is the read model exposed to the UI layer.
type WalletInfo struct {
	UserID         uint      `json:"user_id"`
	WalletID       uint      `json:"wallet_id"`
	Balance        int64     `json:"balance"`
	TotalReceived  int64     `json:"total_received"`
	TotalWithdrawn int64     `json:"total_withdrawn"`
	Status         string    `json:"status"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Info converts the wallet into its read model.
func (w *Wallet) Info() WalletInfo {
	return WalletInfo{
		UserID:         w.UserID,
		WalletID:       w.ID,
		Balance:        w.Balance,
		TotalReceived:  w.TotalReceived,
		TotalWithdrawn: w.TotalWithdrawn,
		Status:         w.Status,
		Version:        w.Version,
		UpdatedAt:      w.UpdatedAt,
	}
}
