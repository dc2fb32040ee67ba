package validation

const (
	// Amounts are stored as numeric(15,2)
	AmountScale = 2
	MaxAmount   = "9999999999999.99"

	// String lengths
	MaxDescriptionLength = 500
	MaxCategoryLength    = 64
)
