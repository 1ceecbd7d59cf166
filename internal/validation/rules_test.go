package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/finsec/keyguard/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	assert.Nil(t, WrapValidationError(nil))

	err := WrapValidationError(assert.AnError)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("value"))
	assert.Error(t, NotBlank.Validate("   "))
}

func TestBase64(t *testing.T) {
	assert.NoError(t, Base64.Validate("aGVsbG8="))
	assert.Error(t, Base64.Validate("%%%"))
}

func TestBusinessID(t *testing.T) {
	valid := []string{"business-1", "acme.corp", "tenant_42", "a"}
	for _, id := range valid {
		assert.NoError(t, BusinessID.Validate(id), id)
	}

	invalid := []string{"-leading-dash", ".leading-dot", "has space", "slash/id"}
	for _, id := range invalid {
		assert.Error(t, BusinessID.Validate(id), id)
	}
}
