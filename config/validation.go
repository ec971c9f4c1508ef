package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/gaborage/restbricks/observability"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
		// report koanf key paths instead of Go field names
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// Validate checks cfg and returns the first violation as a *ConfigError
func Validate(cfg *Config) error {
	err := getValidator().Struct(cfg)
	if err == nil {
		return validateTelemetry(cfg.Telemetry)
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewInvalidFieldError("", err.Error(), nil)
	}
	return toConfigError(fieldErrs[0])
}

func toConfigError(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required", "required_with", "required_if":
		return NewMissingFieldError(field)
	case "notblank":
		return NewInvalidFieldError(field, "must not be blank", nil)
	case "url":
		return NewInvalidFieldError(field, "must be an absolute url", nil)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param()))
	case "gte":
		return NewInvalidFieldError(field, "must be greater than or equal to "+fe.Param(), nil)
	case "lte":
		return NewInvalidFieldError(field, "must be less than or equal to "+fe.Param(), nil)
	default:
		return NewInvalidFieldError(field, "failed "+fe.Tag()+" validation", nil)
	}
}

// validateTelemetry applies the exporter-specific endpoint rules
func validateTelemetry(t TelemetryConfig) error {
	err := t.ObservabilityConfig().Validate()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, observability.ErrMissingServiceName):
		return NewMissingFieldError("telemetry.servicename")
	case errors.Is(err, observability.ErrInvalidEndpointFormat):
		if t.Endpoint == "" {
			return NewMissingFieldError("telemetry.endpoint")
		}
		return NewInvalidFieldError("telemetry.endpoint", err.Error(), nil)
	default:
		return NewInvalidFieldError("telemetry", err.Error(), nil)
	}
}
