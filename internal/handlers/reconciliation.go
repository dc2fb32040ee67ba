package handlers

import (
	"context"
	"errors"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/services/reconciliation"
	"clubledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ReconciliationRunner triggers one locked reconciliation run.
type ReconciliationRunner interface {
	RunOnce(ctx context.Context) (*reconciliation.Report, error)
}

type ReconciliationHandler struct {
	runner ReconciliationRunner
	log    *zap.Logger
}

func NewReconciliationHandler(runner ReconciliationRunner, log *zap.Logger) *ReconciliationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReconciliationHandler{runner: runner, log: log.Named("http")}
}

// Run sweeps every wallet synchronously and returns the run report.
func (h *ReconciliationHandler) Run(c *fiber.Ctx) error {
	report, err := h.runner.RunOnce(c.UserContext())
	switch {
	case err == nil:
		return utils.Success(c, fiber.Map{"report": report})
	case errors.Is(err, reconciliation.ErrRunInProgress):
		return utils.Conflict(c, err.Error())
	case errors.Is(err, apperrors.ErrConsistencyFailure):
		return utils.Respond(c, fiber.StatusInternalServerError, fiber.Map{
			"error":  err.Error(),
			"code":   apperrors.Code(err),
			"report": report,
		})
	default:
		h.log.Error("manual reconciliation failed", zap.Error(err))
		return utils.InternalError(c, "reconciliation failed")
	}
}
