package validation_test

import (
	"testing"

	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/internal/validation"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string `json:"title" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Score int    `json:"score" validate:"min=0,max=10"`
}

func TestStructPasses(t *testing.T) {
	require.NoError(t, validation.Struct(sample{Title: "Quiz", Score: 3}))
}

func TestStructUsesJSONNames(t *testing.T) {
	err := validation.Struct(sample{Email: "nope", Score: 11})
	require.ErrorIs(t, err, clienterrors.ErrInvalidInput)
	require.Contains(t, err.Error(), "title is required")
	require.Contains(t, err.Error(), "email must be a valid email")
	require.Contains(t, err.Error(), "score must be at most 10")
}
