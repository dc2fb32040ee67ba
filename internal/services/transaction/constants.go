package transaction

import "clubledger/internal/validation"

// Operation names used in logs and metrics
const (
	OpCreate  = "create"
	OpApprove = "approve"
	OpReject  = "reject"
	OpEdit    = "edit"
	OpDelete  = "delete"
)

// AmountScale is the number of fractional digits amounts are rendered with
const AmountScale = validation.AmountScale

const resultOK = "ok"
