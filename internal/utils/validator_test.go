package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cardForm struct {
	CardNumber string `json:"card_number" validate:"required,card_number"`
	ExpiryDate string `json:"expiry_date" validate:"required,card_expiry"`
	CVV        string `json:"cvv" validate:"required,cvv"`
	Username   string `json:"username" validate:"omitempty,username"`
}

func TestCardValidators(t *testing.T) {
	tests := []struct {
		name  string
		form  cardForm
		field string
	}{
		{"valid", cardForm{"4242 4242 4242 4242", "12/30", "123", "jean_d"}, ""},
		{"short number", cardForm{"4242 4242", "12/30", "123", ""}, "card_number"},
		{"letters in number", cardForm{"4242 4242 4242 424X", "12/30", "123", ""}, "card_number"},
		{"month out of range", cardForm{"4242424242424242", "13/30", "123", ""}, "expiry_date"},
		{"bad expiry format", cardForm{"4242424242424242", "1230", "123", ""}, "expiry_date"},
		{"long cvv", cardForm{"4242424242424242", "01/29", "1234", ""}, "cvv"},
		{"bad username", cardForm{"4242424242424242", "01/29", "123", "jean d"}, "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.form)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			fields := GetValidationErrors(err)
			require.Len(t, fields, 1)
			assert.Equal(t, tt.field, fields[0].Field)
			assert.NotEmpty(t, fields[0].Message)
		})
	}
}

func TestNormalizeCardNumber(t *testing.T) {
	assert.Equal(t, "4242424242424242", NormalizeCardNumber("4242 4242 4242 4242"))
}
