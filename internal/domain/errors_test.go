package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := NotFound("Item with %d id not found.", 5)
	assert.Equal(t, "Item with 5 id not found.", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)

	err = Validation("Booking has %s already.", "APPROVED")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "APPROVED")

	err = Conflict("User with email %s already exists.", "a@b.c")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestErrorKindSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create booking: %w", NotFound("Refused access."))
	assert.ErrorIs(t, wrapped, ErrNotFound)

	var domainErr *Error
	assert.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrNotFound, domainErr.Kind())
	assert.Equal(t, "Refused access.", domainErr.Error())
}
