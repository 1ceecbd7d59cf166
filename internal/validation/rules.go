// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/base64"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/finsec/keyguard/internal/errors"
)

// businessIDRegex restricts business ids to a safe identifier alphabet.
var businessIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-]*$`)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Base64 validates that a string is valid standard base64.
var Base64 = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := base64.StdEncoding.DecodeString(s)
		return err == nil
	},
	validation.NewError("validation_base64", "must be valid base64"),
)

// BusinessID validates tenant identifiers: alphanumeric with dots, dashes,
// and underscores, starting with an alphanumeric character.
var BusinessID = validation.NewStringRuleWithError(
	func(s string) bool {
		return businessIDRegex.MatchString(s)
	},
	validation.NewError("validation_business_id", "must be a valid business identifier"),
)
