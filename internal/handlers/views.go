package handlers

import (
	"time"

	"tourneypay/internal/models"
	"tourneypay/internal/services/wallet"
	"tourneypay/internal/utils"
)

// Money leaves the API as fixed-point major-unit strings.

type resultView struct {
	Success       bool   `json:"success"`
	TransactionID uint   `json:"transaction_id,omitempty"`
	ReferenceCode string `json:"reference_code"`
	BalanceAfter  string `json:"balance_after"`
	Fee           string `json:"fee"`
	Replayed      bool   `json:"replayed,omitempty"`
	ErrorKind     string `json:"error_kind,omitempty"`
	Message       string `json:"message,omitempty"`
}

type walletView struct {
	UserID         uint      `json:"user_id"`
	WalletID       uint      `json:"wallet_id"`
	Balance        string    `json:"balance"`
	TotalReceived  string    `json:"total_received"`
	TotalWithdrawn string    `json:"total_withdrawn"`
	Status         string    `json:"status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type transactionView struct {
	ID                uint        `json:"id"`
	Type              string      `json:"type"`
	Status            string      `json:"status"`
	Amount            string      `json:"amount"`
	Principal         string      `json:"principal"`
	Fee               string      `json:"fee"`
	BalanceAfter      string      `json:"balance_after"`
	ReferenceCode     string      `json:"reference_code"`
	CorrelationCode   string      `json:"correlation_code"`
	RelatedEntityType string      `json:"related_entity_type,omitempty"`
	RelatedEntityID   *uint       `json:"related_entity_id,omitempty"`
	FailureReason     string      `json:"failure_reason,omitempty"`
	Note              string      `json:"note,omitempty"`
	Metadata          models.JSON `json:"metadata,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

type money struct {
	decimals int32
}

func (m money) format(minor int64) string {
	return utils.FormatMoney(minor, m.decimals)
}

func (m money) result(r wallet.TransactionResult) resultView {
	return resultView{
		Success:       r.Success,
		TransactionID: r.TransactionID,
		ReferenceCode: r.ReferenceCode,
		BalanceAfter:  m.format(r.BalanceAfter),
		Fee:           m.format(r.Fee),
		Replayed:      r.Replayed,
		ErrorKind:     string(r.ErrorKind),
		Message:       r.Message,
	}
}

func (m money) wallet(w *models.WalletInfo) walletView {
	return walletView{
		UserID:         w.UserID,
		WalletID:       w.WalletID,
		Balance:        m.format(w.Balance),
		TotalReceived:  m.format(w.TotalReceived),
		TotalWithdrawn: m.format(w.TotalWithdrawn),
		Status:         w.Status,
		UpdatedAt:      w.UpdatedAt,
	}
}

func (m money) transactions(txs []models.Transaction) []transactionView {
	out := make([]transactionView, len(txs))
	for i := range txs {
		tx := &txs[i]
		out[i] = transactionView{
			ID:                tx.ID,
			Type:              tx.Type,
			Status:            tx.Status,
			Amount:            m.format(tx.Amount),
			Principal:         m.format(tx.Principal()),
			Fee:               m.format(tx.Fee),
			BalanceAfter:      m.format(tx.BalanceAfter),
			ReferenceCode:     tx.ReferenceCode,
			CorrelationCode:   tx.CorrelationCode,
			RelatedEntityType: tx.RelatedEntityType,
			RelatedEntityID:   tx.RelatedEntityID,
			FailureReason:     tx.FailureReason,
			Note:              tx.Note,
			Metadata:          tx.Metadata,
			CreatedAt:         tx.CreatedAt,
		}
	}
	return out
}
