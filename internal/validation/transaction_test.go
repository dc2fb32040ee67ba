package validation

import (
	"strings"
	"testing"

	apperrors "clubledger/internal/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"0.01", true},
		{"100", true},
		{"12.50", true},
		{"9999999999999.99", true},
		{"0", false},
		{"-1", false},
		{"0.001", false},
		{"10.125", false},
		{"10000000000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := Amount(decimal.RequireFromString(tt.amount))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
		})
	}
}

func TestTextLimits(t *testing.T) {
	assert.NoError(t, Description(strings.Repeat("é", MaxDescriptionLength)))
	assert.ErrorIs(t, Description(strings.Repeat("a", MaxDescriptionLength+1)), apperrors.ErrInvalidField)
	assert.NoError(t, Category("equipment"))
	assert.ErrorIs(t, Category(strings.Repeat("a", MaxCategoryLength+1)), apperrors.ErrInvalidField)
}
