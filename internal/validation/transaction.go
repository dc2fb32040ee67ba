// Package validation checks caller-supplied ledger input before it reaches
// storage.
package validation

import (
	"fmt"
	"unicode/utf8"

	apperrors "clubledger/internal/errors"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.RequireFromString(MaxAmount)

// Amount accepts positive amounts with at most two fractional digits that
// fit the storage precision.
func Amount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", apperrors.ErrInvalidAmount)
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", apperrors.ErrInvalidAmount, AmountScale)
	}
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: exceeds %s", apperrors.ErrInvalidAmount, MaxAmount)
	}
	return nil
}

func Description(s string) error {
	if utf8.RuneCountInString(s) > MaxDescriptionLength {
		return fmt.Errorf("%w: description longer than %d characters", apperrors.ErrInvalidField, MaxDescriptionLength)
	}
	return nil
}

func Category(s string) error {
	if utf8.RuneCountInString(s) > MaxCategoryLength {
		return fmt.Errorf("%w: category longer than %d characters", apperrors.ErrInvalidField, MaxCategoryLength)
	}
	return nil
}
