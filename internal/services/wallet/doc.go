/*
Package wallet owns the per-club wallet aggregate.

A club has exactly one wallet. Wallets are created lazily on the first
transaction of a club (GetOrCreateWallet, LockOrCreate) or in bulk for every
known club (EnsureAllWalletsExist), which runs at startup and before each
reconciliation sweep.

Usage:

	svc := wallet.NewService(store, clubs, cacheService, logger)

	// Ensure every club has a wallet
	created, err := svc.EnsureAllWalletsExist(ctx)

	// Read the balance of a club
	summary, err := svc.GetWallet(ctx, clubID)

Balances are never written here; they move only through the transaction
processor and the reconciliation job.

Cache Management:

GetWallet is read-through on a Redis snapshot keyed by club and versioned
by the wallet row. Writers call InvalidateWallet after their unit of work
commits, which stores the committed version; an older snapshot never
replaces a newer one. Cache failures are logged and never fail the request.
*/
package wallet
