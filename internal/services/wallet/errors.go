package wallet

import (
	"errors"
	"fmt"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/repositories"
)

// translate maps repository failures onto domain errors.
func translate(err error, clubID uint) error {
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return fmt.Errorf("%w: club %d", apperrors.ErrWalletNotFound, clubID)
	}
	return err
}
