package crfsuite

import (
	stdErrors "errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/reglet-dev/crfsuite-go/domain/errors"
)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is recommended.
var validate = validator.New()

// ValidateTrainingConfig checks cfg against its validation tags. The first
// failing field is reported as an *errors.ConfigError.
func ValidateTrainingConfig(cfg *TrainingConfig) error {
	if cfg == nil {
		return &errors.ConfigError{Err: fmt.Errorf("config is nil")}
	}
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if stdErrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &errors.ConfigError{
				Field: fe.Field(),
				Err:   fmt.Errorf("failed on '%s' with value %v", fe.Tag(), fe.Value()),
			}
		}
		return &errors.ConfigError{Err: err}
	}
	for name := range cfg.Params {
		if name == "" {
			return &errors.ConfigError{Field: "params", Err: fmt.Errorf("empty parameter name")}
		}
	}
	return nil
}
