// Package memory is an in-process implementation of repositories.Store.
// Units of work are serialized behind one mutex and applied copy-on-commit,
// so a failed unit leaves no trace.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"clubledger/internal/models"
	"clubledger/internal/repositories"

	"github.com/shopspring/decimal"
)

type state struct {
	nextWalletID uint
	wallets      map[uint]models.Wallet // by wallet id
	transactions map[models.TransactionRef]models.Transaction
}

func newState() *state {
	return &state{
		nextWalletID: 1,
		wallets:      make(map[uint]models.Wallet),
		transactions: make(map[models.TransactionRef]models.Transaction),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextWalletID: s.nextWalletID,
		wallets:      make(map[uint]models.Wallet, len(s.wallets)),
		transactions: make(map[models.TransactionRef]models.Transaction, len(s.transactions)),
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) Wallets() repositories.WalletRepository {
	return &walletRepo{run: s.run}
}

func (s *Store) Transactions() repositories.TransactionRepository {
	return &transactionRepo{run: s.run}
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txStore{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// run executes one auto-committed statement.
func (s *Store) run(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state.clone()
	if err := fn(st); err != nil {
		return err
	}
	s.state = st
	return nil
}

// SetWalletTotals overwrites a wallet's stored fields directly, bypassing
// the ledger. It stands in for a manual data fix.
func (s *Store) SetWalletTotals(clubID uint, balance, income, outcome decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.state.wallets {
		if w.ClubID == clubID {
			w.Balance, w.TotalIncome, w.TotalOutcome = balance, income, outcome
			s.state.wallets[id] = w
			return true
		}
	}
	return false
}

// InsertTransaction stores tx as-is without touching any wallet.
func (s *Store) InsertTransaction(tx models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.transactions[tx.Ref()] = tx
}

type txStore struct {
	state *state
}

func (t *txStore) run(fn func(st *state) error) error {
	return fn(t.state)
}

func (t *txStore) Wallets() repositories.WalletRepository {
	return &walletRepo{run: t.run}
}

func (t *txStore) Transactions() repositories.TransactionRepository {
	return &transactionRepo{run: t.run}
}

func (t *txStore) WithinTransaction(_ context.Context, fn func(tx repositories.Store) error) error {
	return fn(t)
}

type walletRepo struct {
	run func(func(*state) error) error
}

func (r *walletRepo) byClub(st *state, clubID uint) (*models.Wallet, error) {
	for _, w := range st.wallets {
		if w.ClubID == clubID {
			w := w
			return &w, nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (r *walletRepo) GetByClubID(_ context.Context, clubID uint) (w *models.Wallet, err error) {
	err = r.run(func(st *state) error {
		w, err = r.byClub(st, clubID)
		return err
	})
	return w, err
}

func (r *walletRepo) LockByClubID(ctx context.Context, clubID uint) (*models.Wallet, error) {
	return r.GetByClubID(ctx, clubID)
}

func (r *walletRepo) LockByID(_ context.Context, id uint) (w *models.Wallet, err error) {
	err = r.run(func(st *state) error {
		found, ok := st.wallets[id]
		if !ok {
			return repositories.ErrWalletNotFound
		}
		w = &found
		return nil
	})
	return w, err
}

func (r *walletRepo) LockByIDs(_ context.Context, ids []uint) (out []models.Wallet, err error) {
	err = r.run(func(st *state) error {
		for _, id := range ids {
			if w, ok := st.wallets[id]; ok {
				out = append(out, w)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *walletRepo) List(_ context.Context) (out []models.Wallet, err error) {
	err = r.run(func(st *state) error {
		for _, w := range st.wallets {
			out = append(out, w)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *walletRepo) create(st *state, clubID uint, now time.Time) bool {
	if _, err := r.byClub(st, clubID); err == nil {
		return false
	}
	w := models.NewWallet(clubID, now)
	w.ID = st.nextWalletID
	st.nextWalletID++
	st.wallets[w.ID] = *w
	return true
}

func (r *walletRepo) CreateIfAbsent(_ context.Context, clubID uint) (created bool, err error) {
	err = r.run(func(st *state) error {
		created = r.create(st, clubID, time.Now())
		return nil
	})
	return created, err
}

func (r *walletRepo) CreateMissing(_ context.Context, clubIDs []uint) (n int, err error) {
	err = r.run(func(st *state) error {
		now := time.Now()
		for _, id := range clubIDs {
			if r.create(st, id, now) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *walletRepo) Save(_ context.Context, wallet *models.Wallet) error {
	return r.run(func(st *state) error {
		if _, ok := st.wallets[wallet.ID]; !ok {
			return repositories.ErrWalletNotFound
		}
		st.wallets[wallet.ID] = *wallet
		return nil
	})
}

func (r *walletRepo) OverwriteTotals(_ context.Context, fixes []models.WalletTotals, at time.Time) (n int64, err error) {
	err = r.run(func(st *state) error {
		for _, f := range fixes {
			w, ok := st.wallets[f.WalletID]
			if !ok {
				continue
			}
			w.Balance, w.TotalIncome, w.TotalOutcome = f.Balance, f.TotalIncome, f.TotalOutcome
			w.Version++
			w.UpdatedAt = at
			st.wallets[f.WalletID] = w
			n++
		}
		return nil
	})
	return n, err
}

type transactionRepo struct {
	run func(func(*state) error) error
}

// settledElsewhere emulates the partial unique index on (fee_id, payer_id).
func settledElsewhere(st *state, tx *models.Transaction) bool {
	if !tx.IsDuplicatePaymentCandidate() || tx.Status != models.StatusSuccess || tx.DeletedAt != nil {
		return false
	}
	for ref, other := range st.transactions {
		if ref == tx.Ref() || ref.Kind != models.KindIncome {
			continue
		}
		if other.Status == models.StatusSuccess && other.DeletedAt == nil &&
			other.FeeID != nil && other.PayerID != nil &&
			*other.FeeID == *tx.FeeID && *other.PayerID == *tx.PayerID {
			return true
		}
	}
	return false
}

func (r *transactionRepo) Create(_ context.Context, tx *models.Transaction) error {
	return r.run(func(st *state) error {
		if settledElsewhere(st, tx) {
			return repositories.ErrDuplicateSettlement
		}
		st.transactions[tx.Ref()] = *tx
		return nil
	})
}

func (r *transactionRepo) Get(_ context.Context, ref models.TransactionRef) (out *models.Transaction, err error) {
	err = r.run(func(st *state) error {
		tx, ok := st.transactions[ref]
		if !ok {
			return repositories.ErrTransactionNotFound
		}
		out = &tx
		return nil
	})
	return out, err
}

func (r *transactionRepo) Lock(ctx context.Context, ref models.TransactionRef) (*models.Transaction, error) {
	return r.Get(ctx, ref)
}

func (r *transactionRepo) Update(_ context.Context, tx *models.Transaction, expected models.TransactionStatus) error {
	return r.run(func(st *state) error {
		stored, ok := st.transactions[tx.Ref()]
		if !ok || stored.Status != expected {
			return repositories.ErrStaleTransaction
		}
		if settledElsewhere(st, tx) {
			return repositories.ErrDuplicateSettlement
		}
		tx.Version = stored.Version + 1
		st.transactions[tx.Ref()] = *tx
		return nil
	})
}

func (r *transactionRepo) HasSettledPayment(_ context.Context, feeID, payerID uint, now time.Time) (found bool, err error) {
	err = r.run(func(st *state) error {
		for ref, tx := range st.transactions {
			if ref.Kind == models.KindIncome && tx.Status == models.StatusSuccess && tx.CountsAt(now) &&
				tx.FeeID != nil && *tx.FeeID == feeID && tx.PayerID != nil && *tx.PayerID == payerID {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *transactionRepo) SumSettled(_ context.Context, kind models.TransactionKind, walletIDs []uint, now time.Time) (sums map[uint]decimal.Decimal, err error) {
	var filter map[uint]bool
	if walletIDs != nil {
		filter = make(map[uint]bool, len(walletIDs))
		for _, id := range walletIDs {
			filter[id] = true
		}
	}
	err = r.run(func(st *state) error {
		sums = make(map[uint]decimal.Decimal)
		for ref, tx := range st.transactions {
			if ref.Kind != kind || tx.Status != models.StatusSuccess || !tx.CountsAt(now) {
				continue
			}
			if filter != nil && !filter[tx.WalletID] {
				continue
			}
			sums[tx.WalletID] = sums[tx.WalletID].Add(tx.Amount)
		}
		return nil
	})
	return sums, err
}

var _ repositories.Store = (*Store)(nil)
