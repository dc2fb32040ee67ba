package transaction

import (
	"fmt"
	"time"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/models"
	"clubledger/internal/validation"

	"github.com/shopspring/decimal"
)

// CreateRequest describes a new income or outcome entry.
type CreateRequest struct {
	Kind            models.TransactionKind `json:"kind"`
	ClubID          uint                   `json:"club_id"`
	ActorID         uint                   `json:"-"` // Set by caller
	Amount          decimal.Decimal        `json:"amount"`
	TransactionDate *time.Time             `json:"transaction_date,omitempty"`
	Description     string                 `json:"description"`
	Category        string                 `json:"category,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`

	// Income only
	FeeID   *uint `json:"fee_id,omitempty"`
	PayerID *uint `json:"payer_id,omitempty"`
}

// EditRequest carries the fields of a PENDING transaction that may change.
// Nil fields are left untouched.
type EditRequest struct {
	Amount          *decimal.Decimal       `json:"amount,omitempty"`
	TransactionDate *time.Time             `json:"transaction_date,omitempty"`
	Description     *string                `json:"description,omitempty"`
	Category        *string                `json:"category,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

func (r CreateRequest) validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidKind, r.Kind)
	}
	if err := validation.Amount(r.Amount); err != nil {
		return err
	}
	if err := validation.Description(r.Description); err != nil {
		return err
	}
	return validation.Category(r.Category)
}

func (r EditRequest) validate() error {
	if r.Amount != nil {
		if err := validation.Amount(*r.Amount); err != nil {
			return err
		}
	}
	if r.Description != nil {
		if err := validation.Description(*r.Description); err != nil {
			return err
		}
	}
	if r.Category != nil {
		return validation.Category(*r.Category)
	}
	return nil
}
