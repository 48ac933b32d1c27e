package validation

import (
	"reflect"
	"strings"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a json field name to a user-facing message.
type FieldErrors map[string]string

type ShippingValidator struct {
	validate *validator.Validate
}

func NewShippingValidator() *ShippingValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &ShippingValidator{validate: v}
}

// Normalize trims every field so that blank input counts as missing.
func Normalize(info domain.ShippingInfo) domain.ShippingInfo {
	return domain.ShippingInfo{
		FullName:    strings.TrimSpace(info.FullName),
		Email:       strings.TrimSpace(info.Email),
		Phone:       strings.TrimSpace(info.Phone),
		AddressLine: strings.TrimSpace(info.AddressLine),
		City:        strings.TrimSpace(info.City),
		Country:     strings.TrimSpace(info.Country),
		PostalCode:  strings.TrimSpace(info.PostalCode),
	}
}

// Validate returns nil when info is acceptable, otherwise one message per offending field.
func (s *ShippingValidator) Validate(info domain.ShippingInfo) FieldErrors {
	err := s.validate.Struct(info)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"shipping": err.Error()}
	}
	out := make(FieldErrors, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}
