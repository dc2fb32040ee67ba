package transaction

import (
	"context"
	"testing"
	"time"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/models"
	"clubledger/internal/repositories"
	"clubledger/internal/repositories/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDelta(t *testing.T) {
	pending := models.TransactionState{Status: models.StatusPending, Amount: dec("40")}
	settled := models.TransactionState{Status: models.StatusSuccess, Amount: dec("40")}
	cancelled := models.TransactionState{Status: models.StatusCancelled, Amount: dec("40")}

	tests := []struct {
		name    string
		kind    models.TransactionKind
		prev    *models.TransactionState
		next    models.TransactionState
		balance string
		income  string
		outcome string
	}{
		{"new pending income", models.KindIncome, nil, pending, "0", "0", "0"},
		{"new settled income", models.KindIncome, nil, settled, "40", "40", "0"},
		{"new settled outcome", models.KindOutcome, nil, settled, "-40", "0", "40"},
		{"approve income", models.KindIncome, &pending, settled, "40", "40", "0"},
		{"approve outcome", models.KindOutcome, &pending, settled, "-40", "0", "40"},
		{"reject", models.KindOutcome, &pending, cancelled, "0", "0", "0"},
		{"settled income reversed", models.KindIncome, &settled, cancelled, "-40", "-40", "0"},
		{"pending amount edit", models.KindIncome, &pending,
			models.TransactionState{Status: models.StatusPending, Amount: dec("75")}, "0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Delta(tt.kind, tt.prev, tt.next)
			assert.True(t, d.Balance.Equal(dec(tt.balance)), "balance %s", d.Balance)
			assert.True(t, d.Income.Equal(dec(tt.income)), "income %s", d.Income)
			assert.True(t, d.Outcome.Equal(dec(tt.outcome)), "outcome %s", d.Outcome)
		})
	}
}

func TestProcessor_Apply(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProcessor(ProcessorConfig{Clock: func() time.Time { return now }})

	store := memory.NewStore()
	_, err := store.Wallets().CreateIfAbsent(ctx, 1)
	require.NoError(t, err)
	w, err := store.Wallets().GetByClubID(ctx, 1)
	require.NoError(t, err)

	apply := func(prev *models.TransactionState, next *models.Transaction) (*models.Wallet, error) {
		var out *models.Wallet
		err := store.WithinTransaction(ctx, func(tx repositories.Store) error {
			var err error
			out, err = p.Apply(ctx, tx, prev, next)
			return err
		})
		return out, err
	}
	txn := func(kind models.TransactionKind, status models.TransactionStatus, amount string) *models.Transaction {
		return &models.Transaction{
			ID:       uuid.New(),
			Kind:     kind,
			WalletID: w.ID,
			ClubID:   1,
			Amount:   dec(amount),
			Status:   status,
		}
	}

	t.Run("zero delta writes nothing", func(t *testing.T) {
		out, err := apply(nil, txn(models.KindIncome, models.StatusPending, "10"))
		require.NoError(t, err)
		assert.Nil(t, out)

		stored, err := store.Wallets().GetByClubID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), stored.Version)
	})

	t.Run("settled income credits", func(t *testing.T) {
		out, err := apply(nil, txn(models.KindIncome, models.StatusSuccess, "100"))
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.True(t, out.Balance.Equal(dec("100")))
		assert.True(t, out.TotalIncome.Equal(dec("100")))
		assert.Equal(t, uint64(1), out.Version)
		assert.Equal(t, now, out.UpdatedAt)
	})

	t.Run("outcome beyond balance is refused", func(t *testing.T) {
		pending := models.TransactionState{Status: models.StatusPending, Amount: dec("150")}
		_, err := apply(&pending, txn(models.KindOutcome, models.StatusSuccess, "150"))
		assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

		stored, err := store.Wallets().GetByClubID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, stored.Balance.Equal(dec("100")))
	})

	t.Run("outcome draining to zero is allowed", func(t *testing.T) {
		out, err := apply(nil, txn(models.KindOutcome, models.StatusSuccess, "100"))
		require.NoError(t, err)
		assert.True(t, out.Balance.IsZero())
		assert.True(t, out.TotalOutcome.Equal(dec("100")))
	})

	t.Run("unknown wallet", func(t *testing.T) {
		next := txn(models.KindIncome, models.StatusSuccess, "1")
		next.WalletID = 999
		_, err := apply(nil, next)
		assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)
	})
}
