package validation

import (
	"testing"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/stretchr/testify/assert"
)

func validShipping() domain.ShippingInfo {
	return domain.ShippingInfo{
		FullName:    "Dana Reyes",
		Email:       "dana@example.com",
		Phone:       "+1 555 0100",
		AddressLine: "12 Harbour Rd",
		City:        "Portsmouth",
		Country:     "GB",
	}
}

func TestValidate_Valid(t *testing.T) {
	v := NewShippingValidator()
	assert.Nil(t, v.Validate(validShipping()))
}

func TestValidate_PostalCodeOptional(t *testing.T) {
	v := NewShippingValidator()
	info := validShipping()
	info.PostalCode = ""
	assert.Nil(t, v.Validate(info))
}

func TestValidate_MissingFields(t *testing.T) {
	v := NewShippingValidator()

	errs := v.Validate(domain.ShippingInfo{})

	assert.Equal(t, FieldErrors{
		"full_name":    "is required",
		"email":        "is required",
		"phone":        "is required",
		"address_line": "is required",
		"city":         "is required",
		"country":      "is required",
	}, errs)
}

func TestValidate_BadEmail(t *testing.T) {
	v := NewShippingValidator()
	info := validShipping()
	info.Email = "dana-at-example"

	errs := v.Validate(info)

	assert.Equal(t, FieldErrors{"email": "must be a valid email address"}, errs)
}

func TestNormalize_BlankCountsAsMissing(t *testing.T) {
	v := NewShippingValidator()
	info := validShipping()
	info.City = "   "

	errs := v.Validate(Normalize(info))

	assert.Equal(t, FieldErrors{"city": "is required"}, errs)
}
