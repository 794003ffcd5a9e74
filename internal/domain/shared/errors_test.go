package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load product: %w", NewDomainError("NOT_FOUND", "Product not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyExists))
}

func TestNewValidationError(t *testing.T) {
	t.Run("single detail becomes the message", func(t *testing.T) {
		err := NewValidationError(FieldError{Field: "options[0].option_name", Message: "is required"})

		assert.Equal(t, CodeValidation, err.Code)
		assert.Equal(t, "options[0].option_name: is required", err.Message)
		require.Len(t, err.Details, 1)
	})

	t.Run("multiple details are counted", func(t *testing.T) {
		err := NewValidationError(
			FieldError{Field: "name", Message: "is required"},
			FieldError{Field: "price", Message: "is required"},
		)

		assert.Contains(t, err.Message, "2 problems")
		assert.Len(t, err.Details, 2)
	})
}

func TestNewUnknownReferenceError(t *testing.T) {
	err := NewUnknownReferenceError("variant", "a", "b")

	assert.Equal(t, CodeUnknownReference, err.Code)
	assert.Equal(t, "Unknown variant reference: a, b", err.Message)
	assert.Len(t, err.Details, 2)
	assert.True(t, IsCode(err, CodeUnknownReference))
}

func TestStorageErrors_Unwrap(t *testing.T) {
	cause := errors.New("connection reset by peer")

	transient := NewTransientStorageError("Storage unavailable", cause)
	assert.ErrorIs(t, transient, cause)
	assert.Contains(t, transient.Error(), "connection reset by peer")

	constraint := NewConstraintViolationError("Duplicate key", cause)
	assert.True(t, IsCode(fmt.Errorf("wrapped: %w", constraint), CodeConstraintViolation))
}
