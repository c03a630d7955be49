// internal/utils/validator.go
package utils

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate

	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	digitsPattern   = regexp.MustCompile(`^[0-9]+$`)
	expiryPattern   = regexp.MustCompile(`^([0-9]{2})/([0-9]{2})$`)
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterValidation("username", validateUsername)
	validate.RegisterValidation("card_number", validateCardNumber)
	validate.RegisterValidation("card_expiry", validateCardExpiry)
	validate.RegisterValidation("cvv", validateCVV)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func validateUsername(fl validator.FieldLevel) bool {
	username := fl.Field().String()

	// Username should be alphanumeric and underscores, 3-50 characters
	if len(username) < 3 || len(username) > 50 {
		return false
	}

	return usernamePattern.MatchString(username)
}

// NormalizeCardNumber strips the grouping spaces the checkout form inserts.
func NormalizeCardNumber(number string) string {
	return strings.ReplaceAll(number, " ", "")
}

func validateCardNumber(fl validator.FieldLevel) bool {
	number := NormalizeCardNumber(fl.Field().String())
	return len(number) == 16 && digitsPattern.MatchString(number)
}

func validateCardExpiry(fl validator.FieldLevel) bool {
	matches := expiryPattern.FindStringSubmatch(fl.Field().String())
	if matches == nil {
		return false
	}
	month, err := strconv.Atoi(matches[1])
	if err != nil {
		return false
	}
	return month >= 1 && month <= 12
}

func validateCVV(fl validator.FieldLevel) bool {
	cvv := fl.Field().String()
	return len(cvv) == 3 && digitsPattern.MatchString(cvv)
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   e.Field(),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "gte":
		return e.Field() + " must be greater than or equal to " + e.Param()
	case "lte":
		return e.Field() + " must be less than or equal to " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "eqfield":
		return "Passwords do not match"
	case "username":
		return "Username must be 3-50 characters and contain only letters, numbers, and underscores"
	case "card_number":
		return "Card number must contain 16 digits"
	case "card_expiry":
		return "Expiry date must use the MM/YY format"
	case "cvv":
		return "CVV must contain 3 digits"
	default:
		return e.Field() + " is invalid"
	}
}
