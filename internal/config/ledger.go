package config

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LedgerLimits holds the amount ranges and fees applied to wallet operations.
// All amounts are in minor currency units.
type LedgerLimits struct {
	MinTopUp           int64
	MaxTopUp           int64
	MinWithdrawal      int64
	MaxWithdrawal      int64
	WithdrawalFee      int64
	MinTransfer        int64
	MaxTransfer        int64
	TransferFee        int64
	MinDonation        int64
	MaxDonation        int64
	DonationFeePercent decimal.Decimal
	CurrencyDecimals   int32
}

// DefaultLedgerLimits returns the limits used when no environment overrides exist.
func DefaultLedgerLimits() LedgerLimits {
	return LedgerLimits{
		MinTopUp:           10_000,
		MaxTopUp:           50_000_000,
		MinWithdrawal:      10_000,
		MaxWithdrawal:      20_000_000,
		WithdrawalFee:      10_000,
		MinTransfer:        1_000,
		MaxTransfer:        20_000_000,
		TransferFee:        0,
		MinDonation:        1_000,
		MaxDonation:        10_000_000,
		DonationFeePercent: decimal.RequireFromString("0.01"),
		CurrencyDecimals:   0,
	}
}

// LoadLedgerLimits reads ledger limits from the environment on top of the defaults.
func LoadLedgerLimits() (LedgerLimits, error) {
	l := DefaultLedgerLimits()

	l.MinTopUp = GetInt64Env("MIN_TOP_UP", l.MinTopUp)
	l.MaxTopUp = GetInt64Env("MAX_TOP_UP", l.MaxTopUp)
	l.MinWithdrawal = GetInt64Env("MIN_WITHDRAWAL", l.MinWithdrawal)
	l.MaxWithdrawal = GetInt64Env("MAX_WITHDRAWAL", l.MaxWithdrawal)
	l.WithdrawalFee = GetInt64Env("WITHDRAWAL_FEE", l.WithdrawalFee)
	l.MinTransfer = GetInt64Env("MIN_TRANSFER", l.MinTransfer)
	l.MaxTransfer = GetInt64Env("MAX_TRANSFER", l.MaxTransfer)
	l.TransferFee = GetInt64Env("TRANSFER_FEE", l.TransferFee)
	l.MinDonation = GetInt64Env("MIN_DONATION", l.MinDonation)
	l.MaxDonation = GetInt64Env("MAX_DONATION", l.MaxDonation)
	l.CurrencyDecimals = int32(GetIntEnv("CURRENCY_DECIMALS", int(l.CurrencyDecimals)))

	if raw := GetEnv("DONATION_FEE_PERCENT", ""); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return l, fmt.Errorf("invalid DONATION_FEE_PERCENT %q: %w", raw, err)
		}
		l.DonationFeePercent = rate
	}

	return l, l.Validate()
}

// Validate checks that the configured ranges are coherent.
func (l LedgerLimits) Validate() error {
	ranges := []struct {
		name     string
		min, max int64
	}{
		{"top up", l.MinTopUp, l.MaxTopUp},
		{"withdrawal", l.MinWithdrawal, l.MaxWithdrawal},
		{"transfer", l.MinTransfer, l.MaxTransfer},
		{"donation", l.MinDonation, l.MaxDonation},
	}
	for _, r := range ranges {
		if r.min <= 0 || r.max < r.min {
			return fmt.Errorf("invalid %s range [%d, %d]", r.name, r.min, r.max)
		}
	}
	if l.WithdrawalFee < 0 || l.TransferFee < 0 {
		return fmt.Errorf("fees must not be negative")
	}
	if l.DonationFeePercent.IsNegative() || l.DonationFeePercent.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("donation fee percent must be within [0, 1], got %s", l.DonationFeePercent)
	}
	if l.CurrencyDecimals < 0 || l.CurrencyDecimals > 8 {
		return fmt.Errorf("currency decimals out of range: %d", l.CurrencyDecimals)
	}
	return nil
}

// DonationFee returns the fee charged on top of a donation amount, rounded to
// the nearest minor unit.
func (l LedgerLimits) DonationFee(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(l.DonationFeePercent).Round(0).IntPart()
}
