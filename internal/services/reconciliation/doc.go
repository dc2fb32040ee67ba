// Package reconciliation recomputes club wallets from their settled
// transaction history and repairs wallets whose stored totals have drifted.
//
// A run:
//  1. creates the wallets missing for existing clubs
//  2. derives income, outcome and balance per wallet from SUCCESS rows
//     that are not soft-deleted
//  3. repairs every drifted wallet in one bulk statement under row locks,
//     falling back to one unit of work per wallet
//  4. re-scans and reports ErrConsistencyFailure for anything still off
//
// Runs are triggered at startup, on a cron schedule and on demand. The
// Scheduler holds a Redis lock for the duration of a run so that only one
// process sweeps at a time.
package reconciliation
