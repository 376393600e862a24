/*
Package wallet is the wallet operations engine of the ledger.

Every balance-affecting request (deposit, withdrawal, peer transfer,
donation) goes through the same path:

	caller -> Service operation -> validation precheck
	       -> Recorder (lock wallets, re-validate, write rows) -> TransactionResult

Usage:

	svc := wallet.NewService(wallet.Dependencies{
	    Repo:          repositories.NewWalletRepository(db),
	    Directory:     repositories.NewUserRepository(db, cacheSvc, log),
	    Beneficiaries: repositories.NewBeneficiaryRepository(db),
	    Cache:         cacheSvc,
	    Events:        notifier,
	    Metrics:       wallet.NewPrometheusMetrics(prometheus.DefaultRegisterer),
	    Logger:        log,
	}, wallet.WalletConfig{Limits: limits})

	res, err := svc.Withdraw(ctx, userID, 50_000, wallet.Options{ReferenceCode: "w-1"})

Results:

Business rule violations (insufficient balance, amount out of range, frozen
wallet, bad counterparty, permission) are not errors. They come back as a
TransactionResult with Success=false and ErrorKind set, and a failed audit row
is written when the caller has a wallet. A non-nil error means the store was
unavailable or a ledger invariant broke; the result still carries the kind.

Idempotency:

Each mutating call carries a reference code, generated when the caller gives
none. Repeating a reference that already committed returns the original
result with Replayed set and moves no money.

Amounts:

All amounts are int64 minor currency units. Formatting into decimal strings
happens only at the HTTP boundary.
*/
package wallet
