package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "github.com/oggyb/recipebox/internal/errors"
)

type item struct {
	Name string `json:"name" validate:"required"`
}

type payload struct {
	Email  string `json:"email" validate:"required,email"`
	Rating int    `json:"rating" validate:"gte=1,lte=5"`
	Items  []item `json:"items" validate:"dive"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(payload{Email: "a@x.com", Rating: 3, Items: []item{{Name: "salt"}}}))
}

func TestValidate_DetailsUseJSONNames(t *testing.T) {
	v := New()
	err := v.Validate(payload{Email: "nope", Rating: 9, Items: []item{{}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcErr.ErrInvalid))

	var de *svcErr.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "must be a valid email address", de.Details["email"])
	assert.Equal(t, "must be less than or equal to 5", de.Details["rating"])
	assert.Equal(t, "is required", de.Details["items[0].name"])
}
