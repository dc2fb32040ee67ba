package transaction

import (
	"errors"
	"fmt"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/models"
	"clubledger/internal/repositories"
)

// translate maps storage errors to domain errors. stale is the domain error
// reported when the row left its expected status under a concurrent writer.
func translate(err error, ref models.TransactionRef, stale *apperrors.DomainError) error {
	switch {
	case errors.Is(err, repositories.ErrTransactionNotFound):
		return fmt.Errorf("%w: %s", apperrors.ErrTransactionNotFound, ref)
	case errors.Is(err, repositories.ErrStaleTransaction):
		return fmt.Errorf("%w: %s", stale, ref)
	case errors.Is(err, repositories.ErrDuplicateSettlement):
		return apperrors.ErrDuplicatePayment
	case errors.Is(err, repositories.ErrWalletNotFound):
		return apperrors.ErrWalletNotFound
	}
	return err
}

func resultOf(err error) string {
	if err == nil {
		return resultOK
	}
	if code := apperrors.Code(err); code != "" {
		return code
	}
	return "error"
}
