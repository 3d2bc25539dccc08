package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	Title    string `json:"title" binding:"required"`
	Quantity int    `json:"quantity" binding:"min=1"`
}

type payload struct {
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required,len=10,number"`
	Method  string `json:"method" binding:"omitempty,oneof=razorpay cod"`
	Lines   []line `json:"lines" binding:"required,min=1,dive"`
	Ignored string `json:"-"`
}

func TestStructValid(t *testing.T) {
	err := Struct(&payload{
		Email: "cadet@example.com",
		Phone: "9876543210",
		Lines: []line{{Title: "Seamanship", Quantity: 1}},
	})
	assert.NoError(t, err)
}

func TestStructFieldErrors(t *testing.T) {
	err := Struct(&payload{
		Email:  "not-an-email",
		Phone:  "+98765432",
		Method: "cheque",
		Lines:  []line{{Title: "", Quantity: 0}},
	})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be a valid email address", verr.Fields["email"])
	assert.Equal(t, "must be exactly 10 characters", verr.Fields["phone"])
	assert.Equal(t, "must be one of: razorpay, cod", verr.Fields["method"])
	assert.Equal(t, "is required", verr.Fields["lines[0].title"])
	assert.Equal(t, "must be at least 1", verr.Fields["lines[0].quantity"])
	assert.Contains(t, err.Error(), "validation failed")
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(errors.New("boom")))
	assert.Equal(t, map[string]string{"x": "bad"}, FieldErrors(NewError("x", "bad")))
}

func TestGinValidatorUsesJSONNames(t *testing.T) {
	v := Gin()
	assert.NoError(t, v.ValidateStruct(nil))
	assert.NoError(t, v.ValidateStruct("not a struct"))

	err := v.ValidateStruct(&payload{Phone: "9876543210", Lines: []line{{Title: "x", Quantity: 1}}})
	require.Error(t, err)
	assert.Equal(t, map[string]string{"email": "is required"}, FieldErrors(err))

	err = v.ValidateStruct([]line{{Title: "ok", Quantity: 1}, {Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, "is required", FieldErrors(err)["title"])
}
