package wallet

import (
	"time"

	"tourneypay/internal/validation"
)

// Default configuration values
const (
	DefaultMaxRetries = 3
	DefaultTimeout    = 30 * time.Second
)

// Reference suffixes for the credit leg of two-wallet operations. The debit
// leg carries the caller's reference unchanged. Callers cannot write the
// separator, so these keys never collide with a caller reference.
const (
	TransferInSuffix       = validation.ReferenceSeparator + "in"
	DonationReceivedSuffix = validation.ReferenceSeparator + "recv"
)

// Operation names used for metrics and logs
const (
	OperationDeposit    = "deposit"
	OperationWithdrawal = "withdrawal"
	OperationTransfer   = "transfer"
	OperationDonation   = "donation"
	OperationFreeze     = "freeze"
	OperationUnfreeze   = "unfreeze"
)

// Operation results
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultReplayed = "replayed"
	ResultError    = "error"
)
