// Package validation wraps go-playground/validator with the gateway's custom
// tags and error formatting.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"message-gateway/internal/common/errors"
)

// Names accepted by the custom enum tags
var (
	RouterTypes     = []string{"priority_keyword", "address_pattern", "metadata_presence"}
	DispatcherTypes = []string{"amqp", "redis"}
	StoreTypes      = []string{"redis", "memory"}
)

// CentralizedValidator provides unified validation using go-playground/validator
type CentralizedValidator struct {
	validator *validator.Validate
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// NewCentralizedValidator creates a new centralized validator instance
func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New()

	registerGatewayValidators(v)

	// Report fields by the name they have in the config file
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"yaml", "json"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &CentralizedValidator{
		validator: v,
	}
}

// ValidateStruct validates a struct using struct tags
func (cv *CentralizedValidator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single variable with validation rules
func (cv *CentralizedValidator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors converts go-playground/validator errors to internal errors
func (cv *CentralizedValidator) formatValidationErrors(err error) error {
	validationErrors := cv.extractValidationErrors(err)
	if len(validationErrors) == 1 {
		return errors.ValidationError(validationErrors[0].Message)
	}

	messages := make([]string, len(validationErrors))
	for i, e := range validationErrors {
		messages[i] = e.Message
	}

	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

// extractValidationErrors extracts structured validation errors
func (cv *CentralizedValidator) extractValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldPath(fieldError),
				Tag:     fieldError.Tag(),
				Value:   fmt.Sprintf("%v", fieldError.Value()),
				Message: cv.formatFieldError(fieldError),
				Param:   fieldError.Param(),
			})
		}
	} else {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "unknown",
			Tag:     "error",
			Message: err.Error(),
		})
	}

	return validationErrors
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return err.Field()
}

// formatFieldError formats go-playground/validator field errors into readable messages
func (cv *CentralizedValidator) formatFieldError(err validator.FieldError) string {
	field := fieldPath(err)
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "url":
		return fmt.Sprintf("field '%s' must be a valid URL", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, err.Param())
	case "gt":
		return fmt.Sprintf("field '%s' must be greater than %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, err.Param())
	case "hostname_port":
		return fmt.Sprintf("field '%s' must be host:port", field)
	case "endpoint_name":
		return fmt.Sprintf("field '%s' must be a non-empty name without whitespace", field)
	case "router_type":
		return fmt.Sprintf("field '%s' must be a valid router type (%s)", field, strings.Join(RouterTypes, ", "))
	case "dispatcher_type":
		return fmt.Sprintf("field '%s' must be a valid dispatcher (%s)", field, strings.Join(DispatcherTypes, ", "))
	case "store_type":
		return fmt.Sprintf("field '%s' must be a valid store (%s)", field, strings.Join(StoreTypes, ", "))
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", field, err.Tag())
	}
}

// registerGatewayValidators registers the custom tags used by gateway configs
func registerGatewayValidators(v *validator.Validate) {
	// Endpoint and channel names end up in routing keys and store keys
	v.RegisterValidation("endpoint_name", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return name != "" && strings.IndexFunc(name, unicode.IsSpace) < 0
	})

	v.RegisterValidation("router_type", oneOf(RouterTypes))
	v.RegisterValidation("dispatcher_type", oneOf(DispatcherTypes))
	v.RegisterValidation("store_type", oneOf(StoreTypes))
}

func oneOf(valid []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, candidate := range valid {
			if value == candidate {
				return true
			}
		}
		return false
	}
}

// Global validator instance for convenience
var globalValidator = NewCentralizedValidator()

// ValidateStruct validates a struct using the global validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}

// ValidateVar validates a variable using the global validator instance
func ValidateVar(field interface{}, tag string) error {
	return globalValidator.ValidateVar(field, tag)
}
