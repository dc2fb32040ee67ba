package handlers

import (
	"errors"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/services/wallet"
	"clubledger/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWallet returns the stored totals of one club wallet.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	clubID, err := c.ParamsInt("clubID")
	if err != nil || clubID <= 0 {
		return utils.BadRequest(c, "invalid club id")
	}

	summary, err := h.walletService.GetWallet(c.UserContext(), uint(clubID))
	if err != nil {
		if errors.Is(err, apperrors.ErrWalletNotFound) {
			return utils.NotFound(c, err.Error())
		}
		return utils.InternalError(c, "failed to get wallet")
	}

	return utils.Success(c, fiber.Map{
		"wallet": summary,
	})
}
