package httpclient

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	configValidator     *validator.Validate
	configValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	configValidatorOnce.Do(func() {
		v := validator.New()
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
		configValidator = v
	})
	return configValidator
}

// configRules holds the validated subset of Config
type configRules struct {
	Name               string        `validate:"omitempty,notblank"`
	BaseURL            string        `validate:"required,notblank"`
	MaxRetries         int           `validate:"gte=0"`
	InitialDelay       time.Duration `validate:"gte=0"`
	MaxPayloadLogBytes int           `validate:"gte=0"`
}

// validateConfig is the only eager check; it never touches the network
func validateConfig(cfg *Config) error {
	err := getValidator().Struct(configRules{
		Name:               cfg.Name,
		BaseURL:            cfg.BaseURL,
		MaxRetries:         cfg.MaxRetries,
		InitialDelay:       cfg.InitialDelay,
		MaxPayloadLogBytes: cfg.MaxPayloadLogBytes,
	})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ConfigError{Message: err.Error()}
	}
	fe := fieldErrs[0]
	return &ConfigError{Field: strings.ToLower(fe.Field()), Message: configErrorMessage(fe)}
}

func configErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
