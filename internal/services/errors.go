// internal/services/errors.go
package services

import (
	"errors"
	"strings"

	"github.com/javajoker/botscript-backend/internal/utils"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")

	// Checkout steps. Each is returned wrapped with the underlying cause.
	ErrOrderCreation      = errors.New("order creation failed")
	ErrLicenseCreation    = errors.New("license creation failed")
	ErrInventoryUpdate    = errors.New("inventory update failed")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// ValidationError lists rejected input fields. It is always returned before
// any store or network call.
type ValidationError struct {
	Fields []utils.ValidationError
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		messages = append(messages, f.Message)
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

func newValidationError(field, tag, message string) *ValidationError {
	return &ValidationError{Fields: []utils.ValidationError{{Field: field, Tag: tag, Message: message}}}
}

// validate runs struct validation and converts failures to *ValidationError.
func validate(req interface{}) error {
	if err := utils.ValidateStruct(req); err != nil {
		fields := utils.GetValidationErrors(err)
		if len(fields) == 0 {
			return &ValidationError{Fields: []utils.ValidationError{{Field: "body", Tag: "invalid", Message: err.Error()}}}
		}
		return &ValidationError{Fields: fields}
	}
	return nil
}
