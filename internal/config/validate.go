package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/erfi/goload/internal/client"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report problems under the config key names users write
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the configuration and returns an *Error listing every problem
func (c *Config) Validate() error {
	var problems []string

	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return NewError(err, err.Error())
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	problems = append(problems, validateStages(c.Stages)...)

	if _, err := client.ParseResolveHosts(c.Resolve); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return NewError(nil, problems...)
	}
	return nil
}

// validateStages enforces positive durations, except that the final stage may
// be an instantaneous drain to zero.
func validateStages(stages []Stage) []string {
	var problems []string
	for i, s := range stages {
		if s.DurationSeconds > 0 {
			continue
		}
		last := i == len(stages)-1
		if s.DurationSeconds == 0 && last && s.TargetConcurrency == 0 {
			continue
		}
		problems = append(problems, fmt.Sprintf("stages[%d].durationSeconds must be positive (got %g)", i, s.DurationSeconds))
	}
	return problems
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "http_url":
		return fmt.Sprintf("%s must be an http(s) URL (got %q)", field, fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got %v)", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s (got %v)", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s (got %v)", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
