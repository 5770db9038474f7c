package service

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"storefront/internal/model"

	"github.com/go-playground/validator/v10"
)

const maxIdempotencyKeyLength = 128

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and reports the first
// failure as a validation error naming the offending field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError("invalid request")
	}

	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return model.NewValidationError("%s is required", field)
	case "gt":
		return model.NewValidationError("%s must be greater than %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return model.NewValidationError("%s must contain at least %s entries", field, fe.Param())
		}
		return model.NewValidationError("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.Slice {
			return model.NewValidationError("%s must contain at most %s entries", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return model.NewValidationError("%s must be at most %s characters", field, fe.Param())
		}
		return model.NewValidationError("%s must be at most %s", field, fe.Param())
	case "oneof":
		return model.NewValidationError("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return model.NewValidationError("%s is invalid", field)
	}
}

// normalizeIdempotencyKey returns nil for an absent key.
func normalizeIdempotencyKey(key string) (*string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	if len(key) > maxIdempotencyKeyLength {
		return nil, model.NewValidationError("Idempotency-Key must be at most %d characters", maxIdempotencyKeyLength)
	}
	for _, r := range key {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return nil, model.NewValidationError("Idempotency-Key must contain printable ASCII characters only")
		}
	}
	return &key, nil
}
