package errors

// ErrInvalidState is the category shared by every disallowed status transition.
var ErrInvalidState = &DomainError{
	Code:    "INVALID_STATE",
	Message: "transaction is in an invalid state for this operation",
}

var (
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
	}
	ErrAlreadyProcessed = &DomainError{
		Code:     "ALREADY_PROCESSED",
		Message:  "transaction already processed",
		Category: ErrInvalidState,
	}
	ErrCannotUpdate = &DomainError{
		Code:     "CANNOT_UPDATE",
		Message:  "transaction cannot be updated",
		Category: ErrInvalidState,
	}
	ErrCannotDelete = &DomainError{
		Code:     "CANNOT_DELETE",
		Message:  "transaction cannot be deleted",
		Category: ErrInvalidState,
	}
	ErrDuplicatePayment = &DomainError{
		Code:    "DUPLICATE_PAYMENT",
		Message: "payer has already settled this fee",
	}
	ErrInvalidField = &DomainError{
		Code:    "INVALID_FIELD",
		Message: "invalid transaction field",
	}
	ErrInvalidKind = &DomainError{
		Code:    "INVALID_KIND",
		Message: "transaction kind must be income or outcome",
	}
)
