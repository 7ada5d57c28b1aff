package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/realtoken-app/go-realtoken/service/persist"
)

// SanitizationPolicy strips all markup from user-supplied free text
var SanitizationPolicy = bluemonday.StrictPolicy()

// ValWithTags is a value with its validation tags
type ValWithTags struct {
	Value interface{}
	Tag   string
}

// ValidationMap is a map of field names to values-with-tags
type ValidationMap map[string]ValWithTags

// WithTag pairs a value with a validation tag
func WithTag(value interface{}, tag string) ValWithTags {
	return ValWithTags{value, tag}
}

// ErrInvalidField is returned when a field fails validation
type ErrInvalidField struct {
	Field string
	Tag   string
}

func (e ErrInvalidField) Error() string {
	return fmt.Sprintf("field '%s' failed validation: '%s'", e.Field, e.Tag)
}

// ValidateFields validates each value in the map against its tag, collecting every
// failure into a single error.
func ValidateFields(v *validator.Validate, fields ValidationMap) error {
	validationErrs := make([]string, 0, len(fields))

	for field, vwt := range fields {
		if err := v.Var(vwt.Value, vwt.Tag); err != nil {
			validationErrs = append(validationErrs, ErrInvalidField{Field: field, Tag: vwt.Tag}.Error())
		}
	}

	if len(validationErrs) > 0 {
		return fmt.Errorf("validation failed: %s", strings.Join(validationErrs, "; "))
	}
	return nil
}

// WithCustomValidators returns a validator with the app's custom validations registered
func WithCustomValidators() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("chain_address", ChainAddressValidator)
	v.RegisterValidation("asset_type", AssetTypeValidator)
	return v
}

// ChainAddressValidator validates that a field is a plausible base58 chain address
var ChainAddressValidator validator.Func = func(fl validator.FieldLevel) bool {
	addr, ok := fl.Field().Interface().(persist.Address)
	if !ok {
		if s, sok := fl.Field().Interface().(string); sok {
			addr = persist.Address(s)
		} else {
			return false
		}
	}
	return addr.Valid()
}

// AssetTypeValidator validates that a field is a known real-asset type
var AssetTypeValidator validator.Func = func(fl validator.FieldLevel) bool {
	at, ok := fl.Field().Interface().(persist.AssetType)
	if !ok {
		if s, sok := fl.Field().Interface().(string); sok {
			at = persist.AssetType(s)
		} else {
			return false
		}
	}
	return at.Valid()
}
