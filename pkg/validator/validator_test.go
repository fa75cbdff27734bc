package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name" validate:"required"`
	Port  int      `json:"port" validate:"gte=1,lte=65535"`
	Ratio *float64 `json:"ratio" validate:"required"`
	Skip  string   `json:"-"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	v := NewValidator()

	errs, ok := v.Validate(sample{Port: 0})
	require.False(t, ok)
	require.Len(t, errs, 3)

	fields := []string{errs[0].Field, errs[1].Field, errs[2].Field}
	assert.ElementsMatch(t, []string{"name", "port", "ratio"}, fields)
	assert.Equal(t, "REQUIRED", errs[0].Code)
	assert.Equal(t, "name is required", errs[0].Message)
}

func TestCheck(t *testing.T) {
	v := NewValidator()
	ratio := 0.5

	assert.NoError(t, v.Check(sample{Name: "a", Port: 80, Ratio: &ratio}))

	err := v.Check(sample{Name: "a", Port: 70000, Ratio: &ratio})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "port must be less than or equal to 65535")
}
