package labeling

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

// ValidationErrorCode is the domain error code for rejected operator input
const ValidationErrorCode = "VALIDATION_ERROR"

// RegisterValidations adds the station's custom tags to v. The HTTP binder
// and the application validator share the same tags.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("inventory_bin", func(fl validator.FieldLevel) bool {
		return labeling.IsValidInventoryBin(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register inventory_bin validation: %w", err)
	}
	v.RegisterTagNameFunc(jsonFieldName)
	return nil
}

// NewValidator creates a validator reading `binding` tags
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	// Registration only fails for an empty tag name.
	_ = RegisterValidations(v)
	return v
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// validationError converts validator output into a single domain error
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.NewDomainError(ValidationErrorCode, err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return shared.NewDomainError(ValidationErrorCode, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "inventory_bin":
		return fe.Field() + " must match the format NN-C-N-NC, e.g. 02-C-4-1A"
	case "datetime":
		return fe.Field() + " must be a date in the format " + fe.Param()
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
