package models

// MonthlyTotals is one month of a wallet's completed income and expense.
type MonthlyTotals struct {
	Month   string `json:"month"` // YYYY-MM
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
	Count   int64  `json:"count"`
}

// WalletStats summarises a wallet's completed activity.
type WalletStats struct {
	TotalTransactions int64           `json:"total_transactions"`
	TotalIncome       int64           `json:"total_income"`
	TotalExpense      int64           `json:"total_expense"`
	CurrentBalance    int64           `json:"current_balance"`
	MonthlyBreakdown  []MonthlyTotals `json:"monthly_breakdown"`
}

// DonationOverview aggregates all completed donations.
type DonationOverview struct {
	TotalDonations  int64 `json:"total_donations"`
	TotalDonated    int64 `json:"total_donated"`
	TotalFees       int64 `json:"total_fees"`
	UniqueDonors    int64 `json:"unique_donors"`
	UniqueReceivers int64 `json:"unique_receivers"`
}

// DonationRank is one row of a top donators / receivers list.
type DonationRank struct {
	Rank   int   `json:"rank"`
	UserID uint  `json:"user_id"`
	Total  int64 `json:"total"`
	Count  int64 `json:"count"`
	LastID uint  `json:"-"`
}

// TypeTotal is the count and signed sum of one transaction type.
type TypeTotal struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
	Sum   int64  `json:"sum"`
}
